package main

import (
	"context"
	"os"
	"strconv"

	"github.com/alecthomas/kong"
	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	"github.com/toastate/toastpack/internal/helpers"
	"github.com/toastate/toastpack/internal/tlogger"
	"github.com/toastate/toastpack/pkg/builder"
	"github.com/toastate/toastpack/pkg/config"
	"github.com/toastate/toastpack/pkg/server"
)

var CLI struct {
	Globals

	Clean           CommandClean           `cmd:"" help:"Removes the temp and dest folders."`
	BuildPolymer    CommandBuildPolymer    `cmd:"" name:"build-polymer" help:"Bundles the polymer entries into the dest folder."`
	CreateDistFiles CommandCreateDistFiles `cmd:"" name:"createDistFiles" help:"Instantiates the shared template once per component."`
	Sass            CommandSass            `cmd:"" help:"Compiles the component stylesheets into the temp folder."`
	SassStyleguide  CommandSassStyleguide  `cmd:"" name:"sass:styleguide" help:"Compiles the style guide into the demo folder."`
	Scripts         CommandScripts         `cmd:"" help:"Compiles the component scripts into the temp folder."`
	PrepareFiles    CommandPrepareFiles    `cmd:"" name:"prepareFiles" help:"Runs createDistFiles, sass and scripts."`
	Inject          CommandInject          `cmd:"" help:"Runs prepareFiles, then injects compiled assets into the templates."`
	Build           CommandBuild           `cmd:"" aliases:"b" help:"Cleans, then builds every component and polymer entry."`
	Watch           CommandWatch           `cmd:"" aliases:"w" help:"Builds, then rebuilds on every source change."`
	Serve           CommandServe           `cmd:"" aliases:"s" help:"Run a live dev server."`
}

type Globals struct {
	ConfigFile string `short:"c" help:"configuration file path (optional)"`
	SrcDir     string `help:"Components folder, overrides webcomponentsFolder."`
	Dest       string `help:"Output folder, overrides dest."`
	Type       string `help:"Build type, production enables minification." env:"TOASTPACK_TYPE"`
	JSON       bool   `help:"Print the build report as JSON."`

	Verbose int `short:"v" help:"Print verbose output." type:"counter"`
}

type CommandClean struct{}

type CommandBuildPolymer struct{}

type CommandCreateDistFiles struct{}

type CommandSass struct{}

type CommandSassStyleguide struct{}

type CommandScripts struct{}

type CommandPrepareFiles struct{}

type CommandInject struct{}

type CommandBuild struct{}

type CommandWatch struct{}

type CommandServe struct {
	Build bool `negatable:"" default:"true" help:"Build and watch the sources."`
	Port  int  `short:"p" help:"Listener port"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("toastpack"),
		kong.Description("Bundles web components into self-contained html documents."),
		kong.UsageOnError(),
	)

	err := ctx.Run(&CLI.Globals)
	if err != nil {
		tlogger.Error("msg", "Run failed", "err", err)
		os.Exit(1)
	}
}

func applyVerbose(v int) {
	switch v {
	case 0:
		tlogger.ApplyLogLevel("info")
	case 1:
		tlogger.ApplyLogLevel("debug")
	default:
		tlogger.ApplyLogLevel("all")
	}
}

func (g *Globals) load() (*config.Configuration, config.BuildContext, error) {
	applyVerbose(g.Verbose)
	tlogger.With("run", uuid.NewString())

	cfg, err := config.Load(g.ConfigFile)
	if err != nil {
		return nil, config.BuildContext{}, err
	}

	bc := cfg.BuildContext(config.Overrides{
		SrcDir:  g.SrcDir,
		DestDir: g.Dest,
		Type:    g.Type,
	})
	if g.Verbose > 1 {
		tlogger.Debug("msg", "Build context", "context", spew.Sdump(bc))
	}

	return cfg, bc, nil
}

// run executes task on a fresh builder and prints its report.
func (g *Globals) run(task func(context.Context, *builder.Builder) error) error {
	_, bc, err := g.load()
	if err != nil {
		return err
	}
	return g.runWith(bc, task)
}

func (g *Globals) runWith(bc config.BuildContext, task func(context.Context, *builder.Builder) error) error {
	b := builder.NewBuilder(bc)

	err := task(context.Background(), b)

	if g.JSON {
		if werr := helpers.WriteJson(os.Stdout, b.Report()); werr != nil {
			return werr
		}
	} else {
		for _, skipped := range b.Report().Skipped() {
			tlogger.Warn("msg", "Asset skipped", "err", skipped)
		}
	}

	return err
}

func (r *CommandClean) Run(g *Globals) error {
	return g.run(func(_ context.Context, b *builder.Builder) error {
		return b.Clean()
	})
}

func (r *CommandBuildPolymer) Run(g *Globals) error {
	return g.run(func(ctx context.Context, b *builder.Builder) error {
		return b.RunStage(builder.StageBundle, func() error {
			return b.BundlePolymer(ctx)
		})
	})
}

func (r *CommandCreateDistFiles) Run(g *Globals) error {
	return g.run(func(ctx context.Context, b *builder.Builder) error {
		return b.RunStage(builder.StagePrepare, func() error {
			_, err := b.RenderTemplates(ctx)
			return err
		})
	})
}

func (r *CommandSass) Run(g *Globals) error {
	return g.run(func(ctx context.Context, b *builder.Builder) error {
		return b.RunStage(builder.StagePrepare, func() error {
			_, err := b.CompileStyles(ctx)
			return err
		})
	})
}

func (r *CommandSassStyleguide) Run(g *Globals) error {
	return g.run(func(ctx context.Context, b *builder.Builder) error {
		return b.RunStage(builder.StagePrepare, func() error {
			return b.CompileStyleguide(ctx)
		})
	})
}

func (r *CommandScripts) Run(g *Globals) error {
	return g.run(func(ctx context.Context, b *builder.Builder) error {
		return b.RunStage(builder.StagePrepare, func() error {
			_, err := b.CompileScripts(ctx)
			return err
		})
	})
}

func (r *CommandPrepareFiles) Run(g *Globals) error {
	return g.run(func(ctx context.Context, b *builder.Builder) error {
		return b.Prepare(ctx)
	})
}

func (r *CommandInject) Run(g *Globals) error {
	return g.run(func(ctx context.Context, b *builder.Builder) error {
		_, err := b.PrepareAndInject(ctx)
		return err
	})
}

func (r *CommandBuild) Run(g *Globals) error {
	return g.run(func(ctx context.Context, b *builder.Builder) error {
		return b.Build(ctx)
	})
}

func (r *CommandWatch) Run(g *Globals) error {
	_, bc, err := g.load()
	if err != nil {
		return err
	}

	err = g.runWith(bc, func(ctx context.Context, b *builder.Builder) error {
		return b.Build(ctx)
	})
	if err != nil {
		return err
	}

	return server.Watch(bc, nil)
}

func (r *CommandServe) Run(g *Globals) error {
	cfg, bc, err := g.load()
	if err != nil {
		return err
	}

	if r.Port <= 0 {
		r.Port = cfg.ServeConfig.Port
	}

	serv := server.NewServer(bc, strconv.Itoa(r.Port), cfg.ServeConfig.Redirect404)

	return serv.Start(r.Build)
}
