package providers

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anomshot/anomshot/internal/config"
	"github.com/anomshot/anomshot/pkg/errors"
	"github.com/anomshot/anomshot/pkg/generation"
)

// oomSignatures are stderr fragments that identify device memory
// exhaustion in common local inference stacks.
var oomSignatures = []string{
	"cuda out of memory",
	"out of memory",
	"oom-kill",
	"mps backend out of memory",
}

// LocalClient runs a generation subprocess per request. The configured
// command is an argv whose {prompt} and {output} placeholders are
// substituted per call; the subprocess must write the image to the
// output path.
type LocalClient struct {
	name    string
	model   string
	command []string
	timeout time.Duration

	// scratchDir holds the per-call output files until they are read back.
	scratchDir string
	logger     *slog.Logger
}

// NewLocalClient creates a local subprocess client from a resolved
// provider config.
func NewLocalClient(cfg config.Provider) (*LocalClient, error) {
	creds := generation.SubprocessCredentials{Command: cfg.Command}
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	scratchDir, err := os.MkdirTemp("", "anomshot-local-*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}

	return &LocalClient{
		name:       cfg.Name,
		model:      cfg.Model,
		command:    cfg.Command,
		timeout:    cfg.Timeout,
		scratchDir: scratchDir,
		logger:     slog.Default().With("provider", cfg.Name),
	}, nil
}

// Name returns the configured provider name.
func (c *LocalClient) Name() string { return c.name }

// Close removes the scratch directory.
func (c *LocalClient) Close() error {
	return os.RemoveAll(c.scratchDir)
}

// Generate runs the generation command once and reads the produced image.
func (c *LocalClient) Generate(ctx context.Context, req generation.Request) (*generation.Result, error) {
	outputPath := filepath.Join(c.scratchDir, uuid.NewString()+".png")
	defer os.Remove(outputPath)

	argv := c.expandCommand(req, outputPath)
	c.logger.DebugContext(ctx, "running generation command", "scenario_id", req.ScenarioID)
	start := time.Now()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, c.classifyRunError(ctx, err, stderr.String())
	}

	image, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, &errors.RemoteError{
			Provider: c.name,
			Body:     excerpt(stderr.Bytes()),
			Cause:    fmt.Errorf("command succeeded but produced no image: %w", err),
		}
	}

	return &generation.Result{
		ScenarioID: req.ScenarioID,
		Image:      image,
		Model:      c.model,
		Duration:   time.Since(start),
	}, nil
}

// expandCommand substitutes the per-call placeholders in the argv.
func (c *LocalClient) expandCommand(req generation.Request, outputPath string) []string {
	prompt := req.Prompt
	if req.NegativePrompt != "" {
		prompt = fmt.Sprintf("%s\nAvoid: %s", prompt, req.NegativePrompt)
	}

	argv := make([]string, len(c.command))
	for i, arg := range c.command {
		arg = strings.ReplaceAll(arg, "{prompt}", prompt)
		arg = strings.ReplaceAll(arg, "{output}", outputPath)
		argv[i] = arg
	}
	return argv
}

func (c *LocalClient) classifyRunError(ctx context.Context, err error, stderr string) error {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &errors.TimeoutError{
			Operation: fmt.Sprintf("%s generation", c.name),
			Duration:  c.timeout,
			Cause:     err,
		}
	}
	if stderrors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}

	lowered := strings.ToLower(stderr)
	for _, sig := range oomSignatures {
		if strings.Contains(lowered, sig) {
			return &errors.ResourceExhaustedError{
				Resource: "device memory",
				Detail:   excerpt([]byte(stderr)),
				Cause:    err,
			}
		}
	}

	return &errors.RemoteError{
		Provider: c.name,
		Body:     excerpt([]byte(stderr)),
		Cause:    err,
	}
}
