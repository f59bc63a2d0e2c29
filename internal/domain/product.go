package domain

// ProductType is the kind of artifact a ProductDef describes.
type ProductType string

const (
	ProductFile   ProductType = "FILE"
	ProductString ProductType = "STRING"
	ProductURL    ProductType = "URL"
	ProductToken  ProductType = "TOKEN"
)

// ProductDef declares a logical artifact class. Immutable once referenced
// by a Framework (enforced by definitions.Graph, not by this type).
type ProductDef struct {
	ID       string      `xml:"id,attr"`
	Type     ProductType `xml:"type,attr"`
	Local    bool        `xml:"local,attr"`
	Combined bool        `xml:"combined,attr"`
}

// ProductState is the lifecycle state of a Product within a running Job.
type ProductState string

const (
	ProductWaiting ProductState = "WAITING"
	ProductDone    ProductState = "DONE"
	ProductBlocked ProductState = "BLOCKED"
)

// TokenLocator is the fixed marker stored as the locator for TOKEN products,
// which carry no real artifact, only a completion signal.
const TokenLocator = "sf.token"

// Product is the per-job instance of a ProductDef: the state of one named
// artifact as it is produced and consumed by the job's tasks.
type Product struct {
	Name    string
	Type    ProductType
	State   ProductState
	Local   bool
	AgentID string // bound task-runner id, only meaningful when Local

	// Locators is keyed by the name of the producing task; DefaultLocator
	// is the locator of the first producer to report one, used when a
	// consumer only cares about "the" locator rather than a specific
	// producer's.
	Locators       map[string]string
	DefaultLocator string

	// Producers lists every task name declared to produce this product,
	// used by the blocking rule to know when every producer has reached a
	// terminal state.
	Producers []string
}

// NewProduct creates a waiting product with no locators yet.
func NewProduct(name string, typ ProductType, local bool, producers []string) *Product {
	return &Product{
		Name:      name,
		Type:      typ,
		State:     ProductWaiting,
		Local:     local,
		Producers: append([]string(nil), producers...),
		Locators:  make(map[string]string),
	}
}

// MarkDoneWithLocator transitions WAITING -> DONE, recording the locator
// under the given producer task. It is a no-op, never an error, on a
// BLOCKED product. On a product that is already DONE it only records the
// further producer's locator: DONE/BLOCKED stay sticky and the default
// locator stays that of the first producer to report one.
func (p *Product) MarkDoneWithLocator(task, locator string) {
	if p.State == ProductBlocked {
		return
	}
	if p.Type == ProductToken {
		locator = TokenLocator
	}
	if p.State == ProductWaiting {
		p.DefaultLocator = locator
	}
	p.Locators[task] = locator
	p.State = ProductDone
}

// MarkDoneToken marks a TOKEN product DONE without a contributing task, used
// at job creation for tokens that are trivially satisfied.
func (p *Product) MarkDoneToken() {
	if p.State != ProductWaiting {
		return
	}
	p.DefaultLocator = TokenLocator
	p.State = ProductDone
}

// MarkBlocked transitions WAITING -> BLOCKED. No-op if already terminal.
func (p *Product) MarkBlocked() {
	if p.State != ProductWaiting {
		return
	}
	p.State = ProductBlocked
}

// IsTerminal reports whether the product's state can never change again.
func (p *Product) IsTerminal() bool {
	return p.State == ProductDone || p.State == ProductBlocked
}
