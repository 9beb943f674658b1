package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"Jarvis/internal/di"
	"Jarvis/pkg/config"
	"Jarvis/pkg/util"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "jarvis",
		Usage: "Solana trading terminal backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config/config.yaml",
				Usage:   "config file path",
				EnvVars: []string{"JARVIS_CONFIG"},
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API, scheduler and consumers",
				Action: serve,
			},
			{
				Name:  "backtest",
				Usage: "run every strategy over a pool once and print the consensus",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "pool", Required: true, Usage: "pool address"},
					&cli.StringFlag{Name: "tf", Value: "15m", Usage: "candle timeframe"},
					&cli.IntFlag{Name: "n", Value: 200, Usage: "number of candles"},
				},
				Action: backtest,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadWithEnv(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log.Printf("env=%s demo=%v kafka=%v clickhouse=%v redis=%v",
		cfg.Environment, cfg.Market.DemoMode, cfg.Kafka.Enabled, cfg.ClickHouse.Enabled, cfg.Redis.Enabled)

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer cleanup()

	return app.Run(c.Context)
}

func backtest(c *cli.Context) error {
	tf := c.String("tf")
	if _, err := util.ParseTimeframe(tf); err != nil {
		return cli.Exit(err.Error(), 2)
	}
	n := c.Int("n")
	if n < 21 {
		return cli.Exit("n must be at least 21", 2)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	bt, cleanup, err := di.InitializeBacktester(cfg)
	if err != nil {
		return fmt.Errorf("backtester initialization failed: %w", err)
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(c.Context, cfg.Market.Timeout*2)
	defer cancel()

	res, err := bt.Strategy.Consensus(ctx, c.String("pool"), tf, n)
	if err != nil {
		return err
	}

	out := struct {
		Source any `json:"source"`
		Result any `json:"result"`
	}{bt.Source.Status(), res}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
