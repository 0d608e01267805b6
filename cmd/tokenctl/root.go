package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sober-studio/blog-api-go-kratos/internal/conf"
	"github.com/sober-studio/blog-api-go-kratos/internal/data"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/auth"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/revocation"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/token"

	"github.com/fatih/color"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/env"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/cobra"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warnColor    = color.New(color.FgYellow)
	keyColor     = color.New(color.FgCyan)
)

// toolkit 命令运行所需的组件，按 -conf 指定的配置构建
type toolkit struct {
	codec    *token.Codec
	registry *revocation.Registry
	close    func()
}

type toolkitLoader func(confPath string) (*toolkit, error)

func newRootCmd(load toolkitLoader) *cobra.Command {
	var confPath string
	var tk *toolkit

	root := &cobra.Command{
		Use:           "tokenctl",
		Short:         "Inspect, issue and revoke blog API bearer tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			tk, err = load(confPath)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if tk != nil && tk.close != nil {
				tk.close()
			}
		},
	}
	root.PersistentFlags().StringVar(&confPath, "conf", "configs/config.yaml", "config path")

	get := func() *toolkit { return tk }
	root.AddCommand(
		newIssueCmd(get),
		newInspectCmd(get),
		newRevokeCmd(get),
		newCleanupCmd(get),
		newStatsCmd(get),
	)
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	return wrapErrors(root)
}

// wrapErrors 统一以红色输出命令错误
func wrapErrors(root *cobra.Command) *cobra.Command {
	for _, c := range root.Commands() {
		run := c.RunE
		c.RunE = func(cmd *cobra.Command, args []string) error {
			err := run(cmd, args)
			if err != nil {
				errorColor.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			}
			return err
		}
	}
	return root
}

// loadToolkit 读取服务端相同的配置，连接撤销后端
func loadToolkit(confPath string) (*toolkit, error) {
	c := config.New(config.WithSource(file.NewSource(confPath), env.NewSource("BLOG_")))
	if err := c.Load(); err != nil {
		return nil, err
	}
	defer c.Close()

	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		return nil, err
	}
	if bc.App == nil || bc.Data == nil {
		return nil, fmt.Errorf("config %s: data and app sections are required", confPath)
	}

	logger := log.NewFilter(log.NewStdLogger(io.Discard), log.FilterLevel(log.LevelError))
	codec, err := auth.NewTokenCodec(bc.App)
	if err != nil {
		return nil, err
	}

	var d *data.Data
	cleanup := func() {}
	if bc.App.Revocation == nil || bc.App.Revocation.Store != data.StoreMemory {
		db, err := data.NewDB(bc.Data, logger)
		if err != nil {
			return nil, err
		}
		rdb, err := data.NewRedis(bc.Data, logger)
		if err != nil {
			return nil, err
		}
		d, cleanup, err = data.NewData(logger, db, rdb, nil)
		if err != nil {
			return nil, err
		}
	}
	store, err := data.NewRevocationStore(bc.App, d)
	if err != nil {
		cleanup()
		return nil, err
	}
	registry, err := data.NewRevocationRegistry(bc.App, store, nil, logger)
	if err != nil {
		cleanup()
		return nil, err
	}
	return &toolkit{codec: codec, registry: registry, close: cleanup}, nil
}

func printField(w io.Writer, key string, value interface{}) {
	keyColor.Fprintf(w, "%-12s", key)
	fmt.Fprintf(w, " %v\n", value)
}
