// Package toolchain runs the external assembler, linker and simulator as
// child processes inside a submission's working area.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ssuji15/rvsim/internal/config"
	"github.com/ssuji15/rvsim/internal/util"
)

var (
	// ErrTimeout is returned when the stage deadline expired and the
	// process group was killed.
	ErrTimeout = errors.New("deadline exceeded")
	// ErrOutputTooLarge is returned when stdout exceeded the capture limit.
	ErrOutputTooLarge = errors.New("output exceeds capture limit")
)

// ExitError is a tool that ran to completion with a nonzero status.
type ExitError struct {
	Tool   string
	Code   int
	Stdout []byte
	Stderr []byte
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Tool, e.Code)
}

type Toolchain struct {
	as          string
	ld          string
	simulator   string
	loadAddress string
	maxOutput   int
	waitDelay   time.Duration
}

func New(cfg *config.PipelineConfig) *Toolchain {
	return &Toolchain{
		as:          resolve(cfg.AS_BINARY),
		ld:          resolve(cfg.LD_BINARY),
		simulator:   resolve(cfg.SIMULATOR_BINARY),
		loadAddress: cfg.LOAD_ADDRESS,
		maxOutput:   cfg.MAX_OUTPUT_BYTES,
		waitDelay:   time.Second,
	}
}

// resolve makes relative paths absolute, since tools run with the working
// area as their directory. Bare names are left for PATH lookup.
func resolve(bin string) string {
	if !strings.ContainsRune(bin, filepath.Separator) || filepath.IsAbs(bin) {
		return bin
	}
	if abs, err := filepath.Abs(bin); err == nil {
		return abs
	}
	return bin
}

// Assemble runs `as input.s -o output.o` in dir.
func (t *Toolchain) Assemble(ctx context.Context, dir string) error {
	_, err := t.run(ctx, dir, "assembler", t.as, util.SourceFile, "-o", util.ObjectFile)
	return err
}

// Link runs `ld output.o -Ttext=<load address> -o output.elf` in dir.
func (t *Toolchain) Link(ctx context.Context, dir string) error {
	_, err := t.run(ctx, dir, "linker", t.ld, util.ObjectFile, "-Ttext="+t.loadAddress, "-o", util.ExecutableFile)
	return err
}

// Simulate runs the simulator on output.elf and returns its stdout.
func (t *Toolchain) Simulate(ctx context.Context, dir string, ticks uint32) ([]byte, error) {
	return t.run(ctx, dir, "simulator", t.simulator,
		"--ticks", strconv.FormatUint(uint64(ticks), 10),
		"--path", util.ExecutableFile,
	)
}

func (t *Toolchain) run(ctx context.Context, dir, tool, bin string, args ...string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, stageContextError(tool, err)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.WaitDelay = t.waitDelay
	killProcessGroup(cmd)

	stdout := &cappedBuffer{limit: t.maxOutput}
	stderr := &cappedBuffer{limit: t.maxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, stageContextError(tool, ctxErr)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ExitError{
				Tool:   tool,
				Code:   exitErr.ExitCode(),
				Stdout: stdout.Bytes(),
				Stderr: stderr.Bytes(),
			}
		}
		return nil, fmt.Errorf("%s: %w", tool, err)
	}
	if stdout.overflow {
		return nil, fmt.Errorf("%s: %w (%d bytes)", tool, ErrOutputTooLarge, t.maxOutput)
	}
	return stdout.Bytes(), nil
}

func stageContextError(tool string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", tool, ErrTimeout)
	}
	return fmt.Errorf("%s interrupted: %w", tool, err)
}

// cappedBuffer keeps the first limit bytes and silently drops the rest so
// the child never blocks or dies on a closed pipe.
type cappedBuffer struct {
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	room := c.limit - c.buf.Len()
	if room <= 0 {
		c.overflow = c.overflow || len(p) > 0
		return len(p), nil
	}
	if len(p) > room {
		c.buf.Write(p[:room])
		c.overflow = true
		return len(p), nil
	}
	c.buf.Write(p)
	return len(p), nil
}

func (c *cappedBuffer) Bytes() []byte {
	return c.buf.Bytes()
}
