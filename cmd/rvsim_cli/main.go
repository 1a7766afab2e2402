package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/ssuji15/rvsim/internal/client"
	"github.com/ssuji15/rvsim/internal/service/logger"
	"github.com/urfave/cli"
)

var appName = "rvsim"

func main() {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	logger.Init(appName, level)

	if err := makeApp().Run(os.Args); err != nil {
		logger.Log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func makeApp() *cli.App {
	app := cli.NewApp()
	app.Name = appName
	app.Usage = "submit RISC-V programs to an rvsim server and fetch their results"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "server",
			Value:  "http://localhost:3000",
			EnvVar: "RVSIM_SERVER",
			Usage:  "Base URL of the rvsim server",
		},
		cli.StringFlag{
			Name:   "token",
			EnvVar: "RVSIM_TOKEN",
			Usage:  "Session token (the value of the jwt cookie)",
		},
	}

	ticksFlag := cli.UintFlag{Name: "ticks", Value: 1000, Usage: "Number of simulation steps"}
	intervalFlag := cli.DurationFlag{Name: "interval", Value: 500 * time.Millisecond, Usage: "Delay between polls"}
	timeoutFlag := cli.DurationFlag{Name: "timeout", Value: time.Minute, Usage: "Give up waiting after this long"}

	app.Commands = []cli.Command{
		{
			Name:      "submit",
			Usage:     "Queue a program and print its submission id",
			ArgsUsage: "<file.s>",
			Flags:     []cli.Flag{ticksFlag},
			Action:    runSubmit,
		},
		{
			Name:      "poll",
			Usage:     "Wait for a submission's result and print it",
			ArgsUsage: "<id>",
			Flags:     []cli.Flag{intervalFlag, timeoutFlag},
			Action:    runPoll,
		},
		{
			Name:      "run",
			Usage:     "Submit a program and wait for its result",
			ArgsUsage: "<file.s>",
			Flags:     []cli.Flag{ticksFlag, intervalFlag, timeoutFlag},
			Action:    runRun,
		},
		{
			Name:  "list",
			Usage: "List your submissions, newest first",
			Flags: []cli.Flag{cli.IntFlag{Name: "limit", Value: 20}},
			Action: func(c *cli.Context) error {
				ctx, cancel := signalContext()
				defer cancel()
				subs, err := newClient(c).List(ctx, c.Int("limit"))
				if err != nil {
					return err
				}
				for _, s := range subs {
					fmt.Printf("%s  %-11s  %s\n", s.ID, s.Status, s.CreatedAt.Format(time.RFC3339))
				}
				return nil
			},
		},
		{
			Name:      "bench",
			Usage:     "Submit the same program repeatedly at a fixed rate",
			ArgsUsage: "<file.s>",
			Flags: []cli.Flag{
				ticksFlag,
				cli.IntFlag{Name: "requests", Value: 100, Usage: "Total submissions"},
				cli.IntFlag{Name: "rate", Value: 5, Usage: "Submissions per second"},
				intervalFlag,
			},
			Action: runBench,
		},
	}
	return app
}

func newClient(c *cli.Context) *client.Client {
	return client.New(c.GlobalString("server"), c.GlobalString("token"))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func readProgram(c *cli.Context) ([]byte, error) {
	if c.NArg() != 1 {
		return nil, errors.New("expected exactly one program file")
	}
	return os.ReadFile(c.Args().First())
}

func ticks(c *cli.Context) (uint32, error) {
	t := c.Uint("ticks")
	if uint64(t) > uint64(^uint32(0)) {
		return 0, fmt.Errorf("ticks %d out of range", t)
	}
	return uint32(t), nil
}

func runSubmit(c *cli.Context) error {
	code, err := readProgram(c)
	if err != nil {
		return err
	}
	t, err := ticks(c)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	id, err := newClient(c).Submit(ctx, t, code)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func runPoll(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one submission id")
	}
	id, err := uuid.Parse(c.Args().First())
	if err != nil {
		return fmt.Errorf("invalid submission id: %w", err)
	}
	return wait(c, newClient(c), id)
}

func runRun(c *cli.Context) error {
	code, err := readProgram(c)
	if err != nil {
		return err
	}
	t, err := ticks(c)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	cl := newClient(c)
	id, err := cl.Submit(ctx, t, code)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "submitted", id)
	return wait(c, cl, id)
}

func wait(c *cli.Context, cl *client.Client, id uuid.UUID) error {
	ctx, cancel := signalContext()
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, c.Duration("timeout"))
	defer cancelTimeout()

	data, err := cl.Wait(ctx, id, c.Duration("interval"))
	if err != nil {
		return err
	}
	return printJSON(data)
}

func printJSON(data []byte) error {
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		out.Reset()
		out.Write(data)
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(os.Stdout)
	return err
}

func runBench(c *cli.Context) error {
	code, err := readProgram(c)
	if err != nil {
		return err
	}
	t, err := ticks(c)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	report := newClient(c).Bench(ctx, client.BenchOptions{
		Requests:     c.Int("requests"),
		RatePerSec:   c.Int("rate"),
		Ticks:        t,
		Code:         code,
		PollInterval: c.Duration("interval"),
	})

	for _, e := range report.Errors {
		logger.Log.Warn().Err(e).Msg("bench request failed")
	}
	fmt.Printf("accepted=%d rejected=%d completed=%d failed=%d elapsed=%s\n",
		report.Accepted, report.Rejected, report.Completed, report.Failed, time.Since(start).Round(time.Millisecond))
	fmt.Printf("latency p50=%s p90=%s p99=%s\n",
		report.Percentile(0.5), report.Percentile(0.9), report.Percentile(0.99))
	return nil
}
