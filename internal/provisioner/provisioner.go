package provisioner

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// Config controls the pod template used when seeding an ephemeral runner.
type Config struct {
	Namespace               string
	RunnerImage             string
	RunnerVersion           string
	ControllerEndpoint      string
	ServiceAccount          string
	TTLSecondsAfterFinished *int32
	BackoffLimit            *int32
	ActiveDeadlineSeconds   *int64
}

// Provisioner creates and tears down Kubernetes Jobs that run ephemeral
// Task Runner agents, one Job per Spawn call for the resource type named
// by the caller.
type Provisioner struct {
	clientset *kubernetes.Clientset
	config    Config
	logger    *log.Entry
}

func New(clientset *kubernetes.Clientset, config Config) *Provisioner {
	return &Provisioner{clientset: clientset, config: config, logger: log.WithField("component", "provisioner")}
}

// Spawn launches one ephemeral Task Runner bound to resType's capability
// set, passing it the caller-supplied enrollToken (SF_ENROLL_TOKEN) so it
// can authenticate its first sync. The runner registers itself and polls like any other
// agent; Kubernetes never hears about job/task assignment.
func (p *Provisioner) Spawn(ctx context.Context, resType string, capabilities []string, enrollToken string) (*batchv1.Job, error) {
	name := fmt.Sprintf("sf-runner-%s", uuid.NewString()[:8])
	logger := p.logger.WithField("job_name", name).WithField("restype", resType)
	logger.Info("spawning ephemeral task runner")

	job := p.buildJobSpec(name, resType, capabilities, enrollToken)
	created, err := p.clientset.BatchV1().Jobs(p.config.Namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("provisioner: creating job %s: %w", name, err)
	}
	return created, nil
}

// Status returns the seeding Job backing a runner, or nil if it no longer
// exists, so a caller can avoid re-spawning while one is still starting up.
func (p *Provisioner) Status(ctx context.Context, name string) (*batchv1.Job, error) {
	job, err := p.clientset.BatchV1().Jobs(p.config.Namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("provisioner: getting job %s: %w", name, err)
	}
	return job, nil
}

// Reap deletes the seeding Job once the runner it launched has registered
// (or failed to) — the Job's only purpose was getting a pod running.
func (p *Provisioner) Reap(ctx context.Context, name string) error {
	policy := metav1.DeletePropagationBackground
	err := p.clientset.BatchV1().Jobs(p.config.Namespace).Delete(ctx, name, metav1.DeleteOptions{
		PropagationPolicy: &policy,
	})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("provisioner: deleting job %s: %w", name, err)
	}
	return nil
}

func (p *Provisioner) buildJobSpec(name, resType string, capabilities []string, enrollToken string) *batchv1.Job {
	env := []corev1.EnvVar{
		{Name: "SF_CONTROLLER_ENDPOINT", Value: p.config.ControllerEndpoint},
		{Name: "SF_RESOURCE_TYPE", Value: resType},
		{Name: "SF_ENROLL_TOKEN", Value: enrollToken},
	}
	for _, c := range capabilities {
		env = append(env, corev1.EnvVar{Name: "SF_CAPABILITY", Value: c})
	}

	container := corev1.Container{
		Name:            "runner",
		Image:           fmt.Sprintf("%s:%s", p.config.RunnerImage, p.config.RunnerVersion),
		ImagePullPolicy: corev1.PullIfNotPresent,
		Env:             env,
	}

	podSpec := corev1.PodSpec{
		RestartPolicy: corev1.RestartPolicyNever,
		Containers:    []corev1.Container{container},
	}
	if p.config.ServiceAccount != "" {
		podSpec.ServiceAccountName = p.config.ServiceAccount
	}

	labels := map[string]string{
		"app":     "sf-ephemeral-runner",
		"restype": resType,
	}

	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: p.config.Namespace, Labels: labels},
		Spec: batchv1.JobSpec{
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec:       podSpec,
			},
		},
	}
	if p.config.TTLSecondsAfterFinished != nil {
		job.Spec.TTLSecondsAfterFinished = p.config.TTLSecondsAfterFinished
	}
	if p.config.BackoffLimit != nil {
		job.Spec.BackoffLimit = p.config.BackoffLimit
	}
	if p.config.ActiveDeadlineSeconds != nil {
		job.Spec.ActiveDeadlineSeconds = p.config.ActiveDeadlineSeconds
	}
	return job
}
