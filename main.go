package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tournevent/shipdoc/internal/server"
	"github.com/tournevent/shipdoc/internal/shipment"
	"github.com/tournevent/shipdoc/internal/storage/postgres"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "shipdoc",
	Short:   "Shipment document service - Nova Poshta internet documents for paid orders",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate [command] [args...]",
	Short: "Run database migrations (up, down, status, version, ...)",
	RunE:  runMigrate,
}

var provisionCmd = &cobra.Command{
	Use:   "provision <order-id>",
	Short: "Provision a shipment document for one order",
	Args:  cobra.ExactArgs(1),
	RunE:  runProvision,
}

var provisionFlags struct {
	params   shipment.Parameters
	shipDate string
}

func init() {
	f := provisionCmd.Flags()
	f.StringVar(&provisionFlags.params.SenderWarehouseIndex, "sender-warehouse", "", "sender warehouse index")
	f.StringVar(&provisionFlags.params.PayerType, "payer", "Recipient", "payer type")
	f.StringVar(&provisionFlags.params.PaymentMethod, "payment", "Cash", "payment method")
	f.StringVar(&provisionFlags.shipDate, "date", "", "ship date, YYYY-MM-DD (default today)")
	f.Float64Var(&provisionFlags.params.Weight, "weight", 0, "weight in kg")
	f.StringVar(&provisionFlags.params.ServiceType, "service", "WarehouseWarehouse", "service type")
	f.IntVar(&provisionFlags.params.SeatsAmount, "seats", 1, "number of seats")
	f.StringVar(&provisionFlags.params.Description, "description", "", "cargo description")
	f.Float64Var(&provisionFlags.params.DeclaredCost, "cost", 0, "declared cost")
	f.Float64Var(&provisionFlags.params.GoodsCost, "goods-cost", 0, "cash on delivery amount, 0 to disable")
	f.StringVar(&provisionFlags.params.CargoType, "cargo", "", "cargo type (default Parcel)")

	rootCmd.AddCommand(serveCmd, migrateCmd, provisionCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	app.logger.Info("Starting shipment document service",
		zap.Int("port", app.cfg.Port),
		zap.String("version", app.cfg.Version),
		zap.Bool("carrier_mock", app.cfg.NovaPoshtaUseMock),
	)

	srv := server.New(server.Config{Port: app.cfg.Port}, app.provisioner, app.documents, app.metrics, app.logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := initDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	command := "up"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}
	if err := postgres.Migrate(ctx, db.SQL, logger, command, args...); err != nil {
		return err
	}
	logger.Info("Migrations applied", zap.String("command", command))
	return nil
}

func runProvision(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	orderID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid order id %q: %w", args[0], err)
	}

	params := provisionFlags.params
	params.ShipDate = time.Now()
	if provisionFlags.shipDate != "" {
		params.ShipDate, err = time.Parse(time.DateOnly, provisionFlags.shipDate)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	doc, err := app.provisioner.Provision(ctx, orderID, params)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
