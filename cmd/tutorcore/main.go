// Command tutorcore serves the student and theme catalogs over HTTP and
// moves theme lists in and out of blob storage.
//
//	tutorcore serve
//	tutorcore import-themes -key imports/themes.csv
//	tutorcore export-themes -key exports/themes.json -format json
//	tutorcore list-blobs -prefix exports/
//	tutorcore stat-blob -key exports/themes.json
//	tutorcore delete-blob -key exports/themes.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tutorcore/internal/adapters/themeio"
	"tutorcore/internal/app"
	"tutorcore/internal/config"
	"tutorcore/internal/infra/observability"
)

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	log, err := observability.NewLogger(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer log.Sync()

	switch cmd {
	case "serve":
		err = serve(ctx, cfg, log)
	case "import-themes":
		err = importThemes(ctx, cfg, log, args, stdout)
	case "export-themes":
		err = exportThemes(ctx, cfg, log, args, stdout)
	case "list-blobs":
		err = listBlobs(ctx, cfg, log, args, stdout)
	case "stat-blob":
		err = statBlob(ctx, cfg, log, args, stdout)
	case "delete-blob":
		err = deleteBlob(ctx, cfg, log, args, stdout)
	default:
		fmt.Fprintf(stderr, "unknown command %q (want serve, import-themes, export-themes, list-blobs, stat-blob or delete-blob)\n", cmd)
		return 2
	}
	if errors.Is(err, flag.ErrHelp) {
		return 2
	}
	if err != nil {
		log.Error("command failed", "command", cmd, "error", err)
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg config.Config, log *observability.Logger) error {
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()
	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTPAddr, err)
	}
	return a.Serve(ctx, ln)
}

func importThemes(ctx context.Context, cfg config.Config, log *observability.Logger, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("import-themes", flag.ContinueOnError)
	key := fs.String("key", "imports/themes.csv", "blob key of the grade,theme CSV")
	return withApp(ctx, cfg, log, fs, args, func(a *app.App) error {
		report, err := a.ThemeIO.Import(ctx, *key)
		if err != nil {
			return err
		}
		log.Info("themes imported", "key", *key, "added", report.Added, "duplicates", report.Duplicates, "invalid", report.Invalid)
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	})
}

func exportThemes(ctx context.Context, cfg config.Config, log *observability.Logger, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export-themes", flag.ContinueOnError)
	key := fs.String("key", "exports/themes.json", "blob key to write")
	format := fs.String("format", string(themeio.FormatJSON), "json or csv")
	return withApp(ctx, cfg, log, fs, args, func(a *app.App) error {
		info, err := a.ThemeIO.Export(ctx, *key, themeio.Format(*format))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(stdout, "%s %d bytes\n", info.Key, info.Size)
		return err
	})
}

// withApp parses args into fs, then runs fn against a fully wired App.
func withApp(ctx context.Context, cfg config.Config, log *observability.Logger, fs *flag.FlagSet, args []string, fn func(*app.App) error) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()
	return fn(a)
}

func listBlobs(ctx context.Context, cfg config.Config, log *observability.Logger, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("list-blobs", flag.ContinueOnError)
	prefix := fs.String("prefix", "", "only list keys with this prefix")
	return withApp(ctx, cfg, log, fs, args, func(a *app.App) error {
		infos, err := a.ThemeIO.List(ctx, *prefix)
		if err != nil {
			return err
		}
		for _, info := range infos {
			if _, err := fmt.Fprintf(stdout, "%s\t%d\t%s\n", info.Key, info.Size, info.LastModified.UTC().Format(time.RFC3339)); err != nil {
				return err
			}
		}
		return nil
	})
}

func statBlob(ctx context.Context, cfg config.Config, log *observability.Logger, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("stat-blob", flag.ContinueOnError)
	key := fs.String("key", "", "blob key to describe")
	return withApp(ctx, cfg, log, fs, args, func(a *app.App) error {
		info, err := a.ThemeIO.Stat(ctx, *key)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	})
}

func deleteBlob(ctx context.Context, cfg config.Config, log *observability.Logger, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("delete-blob", flag.ContinueOnError)
	key := fs.String("key", "", "blob key to remove")
	return withApp(ctx, cfg, log, fs, args, func(a *app.App) error {
		ok, err := a.ThemeIO.Delete(ctx, *key)
		if err != nil {
			return err
		}
		if !ok {
			_, err = fmt.Fprintf(stdout, "%s not found\n", *key)
			return err
		}
		log.Info("blob deleted", "key", *key)
		_, err = fmt.Fprintf(stdout, "%s deleted\n", *key)
		return err
	})
}
