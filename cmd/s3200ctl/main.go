package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/danmuck/s3200ctl/internal/catalog"
	"github.com/danmuck/s3200ctl/internal/config"
	"github.com/danmuck/s3200ctl/internal/heater"
	"github.com/danmuck/s3200ctl/internal/observability"
	"github.com/danmuck/s3200ctl/internal/protocol/session"
	"github.com/danmuck/s3200ctl/internal/server"
	"github.com/danmuck/s3200ctl/internal/transport"
)

const usage = `usage: s3200ctl [-config file] <command> [args]

commands:
  init                 write a default config file
  value NAME           read one value
  values [GROUP]       read a value group, or every value
  errors               list controller errors
  menu                 list menu items
  available            list available values
  timeslots            list time slots
  config               show connected boilers, circuits and solar
  state                show state and mode
  version              show the software version
  date                 show controller date and time
  test                 echo a random string
  setting NAME         read a setting
  set NAME VALUE       write a setting (needs readonly = false)
  input NAME           read a digital input
  output NAME          read a digital output
  analog NAME          read an analog output
  force                show force mode state
  serve                start the HTTP gateway
`

var errUsage = errors.New("invalid arguments")

func main() {
	observability.InitLogger("s3200ctl")
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		fmt.Fprintf(os.Stderr, "s3200ctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("s3200ctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "config file; built-in defaults when empty")
	force := fs.Bool("force", false, "overwrite an existing file on init")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}

	if rest[0] == "init" {
		path := *configPath
		if path == "" {
			path = config.DefaultPath
		}
		if err := config.WriteTemplate(path, *force); err != nil {
			return err
		}
		return printJSON(out, map[string]string{"written": path})
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	device, err := openDevice(cfg)
	if err != nil {
		return err
	}
	if rest[0] == "serve" {
		return server.New(device, cfg.Server()).Serve()
	}
	result, err := execute(device, rest)
	if err != nil {
		return err
	}
	return printJSON(out, result)
}

func openDevice(cfg config.Config) (*heater.Device, error) {
	cat, err := catalog.Open(cfg.Catalog, cfg.Codepage)
	if err != nil {
		return nil, err
	}
	opener, err := transport.NewOpener(cfg.Transport())
	if err != nil {
		return nil, err
	}
	return heater.New(session.NewClient(opener, cfg.Session()), cat, cfg.Heater()), nil
}

func execute(d *heater.Device, args []string) (any, error) {
	cmd, params := args[0], args[1:]
	need := func(n int) error {
		if len(params) != n {
			return fmt.Errorf("%w: %s takes %d argument(s)", errUsage, cmd, n)
		}
		return nil
	}

	switch cmd {
	case "value":
		if err := need(1); err != nil {
			return nil, err
		}
		return d.ValueWithName(params[0])
	case "values":
		if len(params) > 1 {
			return nil, fmt.Errorf("%w: values takes at most one group", errUsage)
		}
		group := ""
		if len(params) == 1 {
			group = params[0]
		}
		return d.Values(group)
	case "errors":
		return d.Errors()
	case "menu":
		return d.Menu()
	case "available":
		return d.AvailableValues()
	case "timeslots":
		return d.TimeSlots()
	case "config":
		return d.Configuration()
	case "state":
		return d.StateAndMode()
	case "version":
		v, err := d.Version()
		return map[string]string{"version": v}, err
	case "date":
		t, err := d.DateTime()
		return map[string]any{"datetime": t}, err
	case "test":
		ok, err := d.TestConnection()
		return map[string]bool{"connected": ok}, err
	case "setting":
		if err := need(1); err != nil {
			return nil, err
		}
		return d.Setting(params[0])
	case "set":
		if err := need(2); err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(params[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: value %q: %v", errUsage, params[1], err)
		}
		if err := d.SetSetting(params[0], v); err != nil {
			return nil, err
		}
		return map[string]any{"setting": params[0], "value": v}, nil
	case "input":
		if err := need(1); err != nil {
			return nil, err
		}
		return d.DigitalInput(params[0])
	case "output":
		if err := need(1); err != nil {
			return nil, err
		}
		return d.DigitalOutput(params[0])
	case "analog":
		if err := need(1); err != nil {
			return nil, err
		}
		return d.AnalogOutput(params[0])
	case "force":
		active, err := d.ForceMode()
		return map[string]bool{"force_active": active}, err
	default:
		return nil, fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
