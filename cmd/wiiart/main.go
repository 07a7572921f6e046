package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/bodgit/wiiart"
	"github.com/bodgit/wiiart/tpl"
	"github.com/hashicorp/go-hclog"
	"github.com/urfave/cli/v2"
)

const defaultDB = "wiiart.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) hclog.Logger {
	level := c.String("log-level")
	if c.Bool("verbose") {
		level = "debug"
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "wiiart",
		Level:  hclog.LevelFromString(level),
		Output: c.App.ErrWriter,
	})
}

func newConverter(c *cli.Context) (*wiiart.Converter, error) {
	var db *wiiart.ArtworkDB
	if !c.Bool("no-cache") {
		var err error
		if db, err = wiiart.NewArtworkDB(c.String("db")); err != nil {
			return nil, err
		}
	}

	conv, err := wiiart.New(db, newLogger(c), wiiart.Options{
		Workers:       c.Int("workers"),
		Interpolation: c.String("interpolation"),
		PaletteSize:   c.Int("palette"),
		SwapBytes:     c.Bool("swap-bytes"),
	})
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}
	return conv, nil
}

func formatNames() string {
	var names []string
	for _, f := range tpl.Formats() {
		if f.Encodable() {
			names = append(names, f.String())
		}
	}
	return strings.Join(names, ", ")
}

func main() {
	app := cli.NewApp()

	app.Name = "wiiart"
	app.Usage = "Nintendo Wii texture artwork conversion utility"
	app.Version = "1.0.0"
	app.ErrWriter = os.Stderr

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"WIIART_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to artwork cache database",
		},
		&cli.BoolFlag{
			Name:  "no-cache",
			Usage: "do not use the artwork cache",
		},
		&cli.StringFlag{
			Name:    "log-level",
			EnvVars: []string{"WIIART_LOG_LEVEL"},
			Value:   "warn",
			Usage:   "log level (trace, debug, info, warn, error)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
		&cli.IntFlag{
			Name:    "workers",
			EnvVars: []string{"WIIART_WORKERS"},
			Value:   10,
			Usage:   "number of files converted concurrently",
		},
		&cli.BoolFlag{
			Name:  "swap-bytes",
			Usage: "byte swap .png_wii pixel data from the Xbox 360 or PS3",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "decode",
			Usage:       "Convert a .tpl or .png_wii texture to PNG",
			Description: "",
			ArgsUsage:   "SOURCE DESTINATION",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "palette",
					Usage: "reduce the PNG to at most this many colors",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				conv, err := newConverter(c)
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer conv.Close()

				if err := conv.ExportPNG(c.Args().Get(0), c.Args().Get(1)); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "encode",
			Usage:       "Convert an image to a .tpl or .png_wii texture",
			Description: "Encodable formats are " + formatNames() + ".",
			ArgsUsage:   "SOURCE DESTINATION",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "format",
					Value: tpl.RGBA8.String(),
					Usage: "texture format",
				},
				&cli.IntFlag{
					Name:  "width",
					Usage: "resize to this width",
				},
				&cli.IntFlag{
					Name:  "height",
					Usage: "resize to this height",
				},
				&cli.StringFlag{
					Name:  "interpolation",
					Value: "bilinear",
					Usage: "resize interpolation (" + strings.Join(wiiart.Interpolations(), ", ") + ")",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				f, err := tpl.ParseFormat(c.String("format"))
				if err != nil {
					return cli.Exit(err, 1)
				}

				conv, err := newConverter(c)
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer conv.Close()

				if err := conv.EncodeFile(c.Args().Get(0), c.Args().Get(1), f, c.Int("width"), c.Int("height")); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "stat",
			Usage:       "Print the format and dimensions of a texture as JSON",
			Description: "",
			ArgsUsage:   "FILE",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				conv, err := wiiart.New(nil, newLogger(c), wiiart.Options{SwapBytes: c.Bool("swap-bytes")})
				if err != nil {
					return cli.Exit(err, 1)
				}

				st, err := conv.Stat(c.Args().First())
				if err != nil {
					return cli.Exit(err, 1)
				}

				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				if err := enc.Encode(st); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "scan",
			Usage:       "Export every texture under a directory to PNG",
			Description: "",
			ArgsUsage:   "DIRECTORY",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "palette",
					Usage: "reduce each PNG to at most this many colors",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				conv, err := newConverter(c)
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer conv.Close()

				ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
				defer stop()

				n, err := conv.Scan(ctx, c.Args().First())
				if err != nil {
					return cli.Exit(err, 1)
				}
				fmt.Fprintf(c.App.Writer, "exported %d textures\n", n)

				return nil
			},
		},
		{
			Name:        "export",
			Usage:       "Export every texture in an archive directory to PNG",
			Description: "",
			ArgsUsage:   "ARCHIVE DESTINATION",
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				conv, err := newConverter(c)
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer conv.Close()

				n, err := conv.ExportArchive(c.Context, wiiart.DirProvider{}, c.Args().Get(0), c.Args().Get(1))
				if err != nil {
					return cli.Exit(err, 1)
				}
				fmt.Fprintf(c.App.Writer, "exported %d textures\n", n)

				return nil
			},
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
