package vanilla

import (
	"context"
	"fmt"
	"time"

	gossh "golang.org/x/crypto/ssh"

	"github.com/imamik/stratus/internal/config"
	"github.com/imamik/stratus/internal/platform/ssh"
	"github.com/imamik/stratus/internal/util/netutil"
)

// Remote runs commands on one instance.
type Remote interface {
	Execute(ctx context.Context, command string) (string, error)
	WriteFile(ctx context.Context, path string, content []byte, mode uint32) error
}

// Dialer returns a Remote for the instance reachable at host.
type Dialer func(ctx context.Context, host string) (Remote, error)

func sshDialer(cfg config.VanillaConfig, privateKey []byte) Dialer {
	wait := config.LoadTimeouts().SSHConnect
	return func(ctx context.Context, host string) (Remote, error) {
		port := cfg.SSHPort
		if port == 0 {
			port = 22
		}
		if err := netutil.WaitForPort(ctx, host, port, wait, 2*time.Second); err != nil {
			return nil, fmt.Errorf("instance %s not reachable over SSH: %w", host, err)
		}

		client, err := ssh.NewClient(&ssh.Config{
			Host:       host,
			Port:       port,
			User:       cfg.SSHUser,
			PrivateKey: privateKey,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func marshalAuthorizedKey(key gossh.PublicKey) []byte {
	return gossh.MarshalAuthorizedKey(key)
}
