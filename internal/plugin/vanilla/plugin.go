package vanilla

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/go-logr/logr"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/config"
	"github.com/imamik/stratus/internal/scaling"
	"github.com/imamik/stratus/internal/util/keygen"
)

// Name is the registry key of the engine.
const Name = "vanilla"

// Node processes.
const (
	ProcessManager = "manager"
	ProcessWorker  = "worker"
	ProcessStorage = "storage"
)

var processesByVersion = map[string][]string{
	"1.0": {ProcessManager, ProcessWorker},
	"2.0": {ProcessManager, ProcessWorker, ProcessStorage},
}

var (
	// ErrUnsupportedVersion is returned for a version the engine does not know.
	ErrUnsupportedVersion = errors.New("unsupported version")
	// ErrManagerCount is returned unless exactly one manager instance is requested.
	ErrManagerCount = errors.New("cluster must have exactly one manager instance")
	// ErrUnknownProcess is returned for a process the version does not provide.
	ErrUnknownProcess = errors.New("unknown node process")
	// ErrNoProcesses is returned for a node group without processes.
	ErrNoProcesses = errors.New("node group has no processes")
	// ErrManagerScaling is returned when a request resizes the manager group.
	ErrManagerScaling = errors.New("manager node group cannot be scaled")
)

// Plugin implements provisioning.Plugin, provisioning.Decommissioner and
// provisioning.Converter.
type Plugin struct {
	cfg         config.VanillaConfig
	privateKey  []byte
	publicKey   string
	dial        Dialer
	parallelism int
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithDialer replaces the SSH dialer (useful for testing).
func WithDialer(d Dialer) Option {
	return func(p *Plugin) {
		p.dial = d
	}
}

// WithKeyPair sets the key used to log in to instances.
func WithKeyPair(kp *keygen.KeyPair) Option {
	return func(p *Plugin) {
		p.privateKey = kp.PrivateKey
		p.publicKey = string(kp.PublicKey)
	}
}

// New builds the engine. The private key is read from cfg.SSHPrivateKey;
// without one an ephemeral Ed25519 key is generated.
func New(cfg config.VanillaConfig, opts ...Option) (*Plugin, error) {
	if cfg.SSHUser == "" {
		cfg.SSHUser = "root"
	}
	if cfg.ServiceCommand == "" {
		cfg.ServiceCommand = "systemctl"
	}

	p := &Plugin{cfg: cfg, parallelism: 10}
	for _, opt := range opts {
		opt(p)
	}

	if p.privateKey == nil {
		kp, err := loadKeyPair(cfg.SSHPrivateKey)
		if err != nil {
			return nil, err
		}
		p.privateKey = kp.PrivateKey
		p.publicKey = string(kp.PublicKey)
	}
	if p.dial == nil {
		p.dial = sshDialer(cfg, p.privateKey)
	}
	return p, nil
}

func loadKeyPair(path string) (*keygen.KeyPair, error) {
	if path == "" {
		kp, err := keygen.GenerateEd25519KeyPair()
		if err != nil {
			return nil, fmt.Errorf("failed to generate SSH key: %w", err)
		}
		return kp, nil
	}

	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key: %w", err)
	}
	kp := &keygen.KeyPair{PrivateKey: pem}
	signer, err := kp.Signer()
	if err != nil {
		return nil, err
	}
	kp.PublicKey = marshalAuthorizedKey(signer.PublicKey())
	return kp, nil
}

// PublicKey returns the authorized_keys line instances must accept.
func (p *Plugin) PublicKey() string {
	return p.publicKey
}

func (p *Plugin) Name() string  { return Name }
func (p *Plugin) Title() string { return "Vanilla" }

func (p *Plugin) Description() string {
	return "Runs one manager and any number of worker and storage nodes as plain system services, configured over SSH."
}

func (p *Plugin) Versions() []string {
	return []string{"1.0", "2.0"}
}

func (p *Plugin) NodeProcesses(version string) ([]string, error) {
	processes, ok := processesByVersion[version]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, version)
	}
	return slices.Clone(processes), nil
}

func (p *Plugin) RequiredImageTags(version string) []string {
	return []string{Name, version}
}

// Validate checks the process topology of a new cluster.
func (p *Plugin) Validate(ctx context.Context, cluster *v1alpha1.Cluster) error {
	if err := p.checkProcesses(cluster); err != nil {
		return err
	}

	managers := 0
	for _, ng := range cluster.NodeGroups {
		if ng.HasProcess(ProcessManager) {
			managers += ng.Count
		}
	}
	if managers != 1 {
		return fmt.Errorf("%w: got %d", ErrManagerCount, managers)
	}

	logr.FromContextOrDiscard(ctx).V(1).Info("cluster topology valid", "cluster", cluster.ID)
	return nil
}

// ValidateScaling rejects changes to the manager group and unknown processes
// in added groups. cluster already contains the added groups.
func (p *Plugin) ValidateScaling(_ context.Context, cluster *v1alpha1.Cluster, deltas scaling.Deltas) error {
	if err := p.checkProcesses(cluster); err != nil {
		return err
	}
	for _, id := range deltas.IDs() {
		ng, ok := cluster.NodeGroupByID(id)
		if !ok {
			return fmt.Errorf("node group %s: %w", id, scaling.ErrUnknownNodeGroup)
		}
		if ng.HasProcess(ProcessManager) {
			return fmt.Errorf("%w: %s", ErrManagerScaling, ng.Name)
		}
	}
	return nil
}

func (p *Plugin) checkProcesses(cluster *v1alpha1.Cluster) error {
	known, err := p.NodeProcesses(cluster.PluginVersion)
	if err != nil {
		return err
	}
	for _, ng := range cluster.NodeGroups {
		if len(ng.NodeProcesses) == 0 {
			return fmt.Errorf("%w: %s", ErrNoProcesses, ng.Name)
		}
		for _, proc := range ng.NodeProcesses {
			if !slices.Contains(known, proc) {
				return fmt.Errorf("%w: %q in node group %s", ErrUnknownProcess, proc, ng.Name)
			}
		}
	}
	return nil
}

// UpdateInfra has nothing to prepare; instances need no shared resources.
func (p *Plugin) UpdateInfra(ctx context.Context, cluster *v1alpha1.Cluster) error {
	logr.FromContextOrDiscard(ctx).V(1).Info("no infrastructure to update", "cluster", cluster.ID)
	return nil
}

// OnTerminateCluster needs no cleanup beyond deleting the instances.
func (p *Plugin) OnTerminateCluster(ctx context.Context, cluster *v1alpha1.Cluster) error {
	logr.FromContextOrDiscard(ctx).V(1).Info("terminating", "cluster", cluster.ID)
	return nil
}
