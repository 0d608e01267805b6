package main

import (
	"flag"
	"os"

	"github.com/sober-studio/blog-api-go-kratos/internal/conf"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/cron"
	appenv "github.com/sober-studio/blog-api-go-kratos/internal/pkg/env"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/revocation"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/env"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "blog-api"
	// Version is the version of the compiled software.
	Version string
	// flagconf is the config flag.
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs", "config path, eg: -conf config.yaml")
}

func newApp(logger log.Logger, hs *http.Server, cs *cron.Server, registry *revocation.Registry) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		// 登记表预热期间查询回落到持久化后端
		kratos.Server(
			registry,
			hs,
			cs,
		),
	)
}

func main() {
	flag.Parse()

	c := config.New(
		config.WithSource(
			file.NewSource(flagconf),
			env.NewSource("BLOG_"),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		panic(err)
	}

	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		panic(err)
	}
	if bc.App == nil || bc.Server == nil || bc.Data == nil {
		panic("config: server, data and app sections are required")
	}

	appenv.Init(bc.App.Env)

	logger := log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)
	level := log.LevelInfo
	if bc.App.Log != nil && bc.App.Log.Level != "" {
		level = log.ParseLevel(bc.App.Log.Level)
	}
	logger = log.NewFilter(logger, log.FilterLevel(level))

	app, cleanup, err := wireApp(bc.Server, bc.Data, bc.App, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		panic(err)
	}
}
