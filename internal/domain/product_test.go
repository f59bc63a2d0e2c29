package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductMarkDoneWithLocatorSetsDefaultFromFirstProducer(t *testing.T) {
	p := NewProduct("artifact", ProductFile, false, []string{"build", "package"})

	p.MarkDoneWithLocator("build", "s3://bucket/a")
	require.Equal(t, ProductDone, p.State)
	assert.Equal(t, "s3://bucket/a", p.DefaultLocator)

	p.MarkDoneWithLocator("package", "s3://bucket/b")
	assert.Equal(t, "s3://bucket/a", p.DefaultLocator, "default locator sticks to the first producer")
	assert.Equal(t, "s3://bucket/b", p.Locators["package"])
}

func TestProductMarkDoneWithLocatorIsStickyAgainstDuplicates(t *testing.T) {
	p := NewProduct("artifact", ProductFile, false, nil)
	p.MarkBlocked()

	p.MarkDoneWithLocator("build", "s3://bucket/a")
	assert.Equal(t, ProductBlocked, p.State, "a terminal product must never be reopened")
}

func TestProductTokenLocatorOverridesReportedLocator(t *testing.T) {
	p := NewProduct("gate", ProductToken, false, []string{"build"})
	p.MarkDoneWithLocator("build", "ignored")
	assert.Equal(t, TokenLocator, p.DefaultLocator)
}

func TestProductMarkDoneTokenIsIdempotent(t *testing.T) {
	p := NewProduct("gate", ProductToken, false, nil)
	p.MarkDoneToken()
	p.MarkBlocked() // no-op, already terminal

	assert.Equal(t, ProductDone, p.State)
	assert.Equal(t, TokenLocator, p.DefaultLocator)
}
