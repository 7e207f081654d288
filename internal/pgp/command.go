package pgp

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/fenilsonani/mailcore/internal/mailerr"
	"github.com/fenilsonani/mailcore/internal/model"
)

// commandProvider shells out to a local gpg binary, matching
// original_source's pgp-commands backend: every operation is a single
// gpg invocation with data piped through stdin/stdout.
type commandProvider struct {
	path string
	args []string
}

func newCommandProvider(cfg model.PGPConfig) *commandProvider {
	path := cfg.CommandPath
	if path == "" {
		path = "gpg"
	}
	return &commandProvider{path: path, args: cfg.CommandArgs}
}

func (p *commandProvider) run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	fullArgs := append(append([]string{}, p.args...), args...)
	cmd := exec.CommandContext(ctx, p.path, fullArgs...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, mailerr.Wrap(mailerr.KindPGP, fmt.Sprintf("gpg %v: %s", args, stderr.String()), err)
	}
	return stdout.Bytes(), nil
}

func (p *commandProvider) Sign(ctx context.Context, sender string, data []byte) ([]byte, error) {
	return p.run(ctx, data, "--batch", "--yes", "--detach-sign", "--armor", "-u", sender)
}

func (p *commandProvider) Verify(ctx context.Context, signer string, data, signature []byte) (bool, error) {
	sigFile, err := os.CreateTemp("", "mailcore-pgp-sig-*.asc")
	if err != nil {
		return false, mailerr.Wrap(mailerr.KindIO, "create temp signature file", err)
	}
	defer os.Remove(sigFile.Name())
	if _, err := sigFile.Write(signature); err != nil {
		sigFile.Close()
		return false, mailerr.Wrap(mailerr.KindIO, "write temp signature file", err)
	}
	sigFile.Close()

	_, err = p.run(ctx, data, "--batch", "--yes", "--verify", sigFile.Name(), "-")
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (p *commandProvider) Encrypt(ctx context.Context, recipients []string, data []byte) ([]byte, error) {
	args := []string{"--batch", "--yes", "--armor", "--trust-model", "always", "--encrypt"}
	for _, r := range recipients {
		args = append(args, "-r", r)
	}
	return p.run(ctx, data, args...)
}

func (p *commandProvider) Decrypt(ctx context.Context, data []byte) ([]byte, error) {
	return p.run(ctx, data, "--batch", "--yes", "--decrypt")
}
