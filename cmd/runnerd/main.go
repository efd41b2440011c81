// Command runnerd is a local, YAML-configured process orchestrator: it
// launches, supervises, and tears down a declared set of child processes
// ("scripts") grouped into services and service sets, and exposes a
// line-oriented control channel over a local TCP socket so that later
// invocations of this same binary act as a client against the running
// daemon.
//
// Usage:
//
//	runnerd [config_file.yml] [noinit] [noexec] [command ...]
//
// With a config file and no trailing command, runnerd loads the config,
// brings up its control server, and blocks. With a config file and a
// trailing command, the command is dispatched locally before the control
// server starts. With no config file but a command, the command is sent
// to an already-running runnerd over the control socket. With neither,
// runnerd prints usage and exits 0.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"cirello.io/runnerd/internal/config"
	"cirello.io/runnerd/internal/control"
	"cirello.io/runnerd/internal/logstream"
	"cirello.io/runnerd/internal/orchestrator"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("runnerd: ")

	app := &cli.App{
		Name:                 "runnerd",
		Usage:                "local process orchestrator",
		UsageText:            "runnerd [config_file.yml] [noinit] [noexec] [command ...]",
		Action:               rootAction,
		Commands:             []*cli.Command{logsCommand()},
		EnableBashCompletion: true,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}

// parsedArgs is the result of applying the positional grammar from the
// supervisor entrypoint to the command-line tail.
type parsedArgs struct {
	configPath string
	noinit     bool
	noexec     bool
	command    []string
}

func parseArgs(args []string) parsedArgs {
	var p parsedArgs
	for i, a := range args {
		if i == 0 && strings.HasSuffix(a, ".yml") {
			p.configPath = a
			continue
		}
		switch a {
		case "noinit":
			p.noinit = true
		case "noexec":
			p.noexec = true
		default:
			p.command = append(p.command, a)
		}
	}
	return p
}

func rootAction(c *cli.Context) error {
	p := parseArgs(c.Args().Slice())

	switch {
	case p.configPath != "" && len(p.command) == 0:
		return serveConfig(p)
	case p.configPath != "" && len(p.command) > 0:
		return serveConfigWithCommand(p)
	case p.configPath == "" && len(p.command) > 0:
		return control.SendCommand(strings.Join(p.command, " "), os.Stdout)
	default:
		return cli.ShowAppHelp(c)
	}
}

func buildManager(p parsedArgs) (*orchestrator.Manager, *config.Config, error) {
	cfg, err := config.Load(p.configPath)
	if err != nil {
		return nil, nil, err
	}
	if p.noinit {
		cfg.Spec.InitCommand = nil
		cfg.Spec.ShutdownCommand = nil
	}
	w := control.NewWriter(os.Stdout)
	m, err := orchestrator.New(context.Background(), cfg.Spec, p.noexec, w)
	if err != nil {
		return nil, nil, err
	}
	return m, cfg, nil
}

func serveConfig(p parsedArgs) error {
	m, cfg, err := buildManager(p)
	if err != nil {
		return err
	}
	installSignalHandler(m, p.noexec)
	startLogstream(m, cfg)
	return control.NewServer(m, p.noexec, nil).ListenAndServe()
}

func serveConfigWithCommand(p parsedArgs) error {
	m, cfg, err := buildManager(p)
	if err != nil {
		return err
	}
	installSignalHandler(m, p.noexec)
	startLogstream(m, cfg)

	// Dispatch already reports any error to w itself; a failing startup
	// command must not stop the ControlServer from coming up. Only the
	// "exit" verb, which has already shut everything down, ends the process
	// here.
	w := control.NewWriter(os.Stdout)
	if exit, _ := control.Dispatch(m, w, strings.Join(p.command, " "), p.noexec); exit {
		return nil
	}
	return control.NewServer(m, p.noexec, nil).ListenAndServe()
}

func startLogstream(m *orchestrator.Manager, cfg *config.Config) {
	if cfg.LogAddr == "" {
		return
	}
	srv := logstream.NewServer(m.Hub, cfg.LogAddr, log.New(os.Stderr, "runnerd: logstream: ", 0))
	go func() {
		if err := srv.ListenAndServe(context.Background()); err != nil {
			log.Println("logstream server exited:", err)
		}
	}()
}

// installSignalHandler wires SIGINT/SIGTERM to a full shutdown, then exits
// with code 1, matching the documented termination-signal behavior.
func installSignalHandler(m *orchestrator.Manager, dryRun bool) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		w := control.NewWriter(os.Stdout)
		fmt.Fprintln(w, "received termination signal, shutting down")
		if err := m.Shutdown(dryRun, w); err != nil {
			fmt.Fprintln(w, "shutdown:", err)
		}
		os.Exit(1)
	}()
}
