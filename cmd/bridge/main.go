package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Get-Company/GC-Bridge-4/internal/application/ordersync"
	"github.com/Get-Company/GC-Bridge-4/internal/application/partysync"
	"github.com/Get-Company/GC-Bridge-4/internal/application/productsync"
	"github.com/Get-Company/GC-Bridge-4/internal/domain/rules"
	"github.com/Get-Company/GC-Bridge-4/internal/erp"
	"github.com/Get-Company/GC-Bridge-4/internal/infrastructure/config"
	"github.com/Get-Company/GC-Bridge-4/internal/infrastructure/erpgate"
	"github.com/Get-Company/GC-Bridge-4/internal/infrastructure/logger"
	"github.com/Get-Company/GC-Bridge-4/internal/infrastructure/persistence"
	"github.com/Get-Company/GC-Bridge-4/internal/infrastructure/shopware"
)

func main() {
	var (
		limit    int
		logLevel string
	)
	flag.IntVar(&limit, "limit", 0, "Maximum number of records per batch command (0 = no limit)")
	flag.StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database,
		logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level)))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	app := &bridge{cfg: cfg, db: db, logger: log}

	// Batch runs stop at the next record boundary on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.run(ctx, command, args[1:], limit); err != nil {
		log.Fatal("Command failed", zap.String("command", command), zap.Error(err))
	}
}

// bridge wires repositories and external clients per command, so a command
// only dials the systems it actually talks to.
type bridge struct {
	cfg    *config.Config
	db     *persistence.Database
	logger *zap.Logger
}

func (b *bridge) run(ctx context.Context, command string, args []string, limit int) error {
	switch command {
	case "sync-orders":
		return b.syncOrders(ctx, limit)
	case "post-order":
		if len(args) != 1 {
			return fmt.Errorf("usage: post-order <order-number>")
		}
		return b.postOrder(ctx, args[0])
	case "post-orders":
		return b.postOrders(ctx, limit)
	case "pull-customer":
		if len(args) != 1 {
			return fmt.Errorf("usage: pull-customer <erp-nr>")
		}
		return b.pullCustomer(ctx, args[0])
	case "push-customer":
		if len(args) != 1 {
			return fmt.Errorf("usage: push-customer <erp-nr|api-id>")
		}
		return b.pushCustomer(ctx, args[0])
	case "sync-products":
		return b.syncProducts(ctx, args, limit)
	case "push-products":
		return b.pushProducts(ctx, args)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (b *bridge) platform() (*shopware.Client, error) {
	return shopware.NewClient(b.cfg.Shopware, b.logger)
}

func (b *bridge) sessions() (erp.SessionFactory, error) {
	return erpgate.NewFactory(b.cfg.ERP, b.logger)
}

func (b *bridge) syncOrders(ctx context.Context, limit int) error {
	platform, err := b.platform()
	if err != nil {
		return err
	}

	svc := ordersync.NewIngestService(
		persistence.NewGormOrderRepository(b.db.DB),
		persistence.NewGormCustomerRepository(b.db.DB),
		persistence.NewGormAddressRepository(b.db.DB),
		persistence.NewGormSalesChannelRepository(b.db.DB),
		platform,
		b.logger,
	)

	summary, err := svc.SyncOpenOrders(ctx, b.cfg.Sync.SalesChannels, limit)
	if summary != nil {
		b.logger.Info("order ingest summary",
			zap.Int("seen", summary.OrdersSeen),
			zap.Int("created", summary.OrdersCreated),
			zap.Int("updated", summary.OrdersUpdated),
			zap.Int("failed", summary.OrdersFailed))
	}
	return err
}

func (b *bridge) postService() (*ordersync.PostService, error) {
	platform, err := b.platform()
	if err != nil {
		return nil, err
	}
	sessions, err := b.sessions()
	if err != nil {
		return nil, err
	}

	customers := persistence.NewGormCustomerRepository(b.db.DB)
	addresses := persistence.NewGormAddressRepository(b.db.DB)
	push := partysync.NewPushService(customers, addresses, platform, sessions, b.logger)
	resolver := rules.NewResolver(persistence.NewGormRuleRepository(b.db.DB), b.logger)

	return ordersync.NewPostService(
		persistence.NewGormOrderRepository(b.db.DB),
		customers,
		addresses,
		persistence.NewGormProductRepository(b.db.DB),
		resolver,
		push,
		sessions,
		b.cfg.Sync,
		b.logger,
	), nil
}

func (b *bridge) postOrder(ctx context.Context, apiID string) error {
	svc, err := b.postService()
	if err != nil {
		return err
	}

	orders := persistence.NewGormOrderRepository(b.db.DB)
	order, err := orders.FindByAPIID(ctx, apiID)
	if err != nil {
		return fmt.Errorf("order %s: %w", apiID, err)
	}

	result, err := svc.PostOrder(ctx, order)
	if err != nil {
		return err
	}
	b.logger.Info("order posted",
		zap.String("order", order.ReferenceNumber()),
		zap.String("erpOrderId", result.ErpOrderID),
		zap.Bool("new", result.IsNew))
	return nil
}

func (b *bridge) postOrders(ctx context.Context, limit int) error {
	svc, err := b.postService()
	if err != nil {
		return err
	}

	orders := persistence.NewGormOrderRepository(b.db.DB)
	unposted, err := orders.FindUnposted(ctx, limit)
	if err != nil {
		return err
	}

	posted, failed := 0, 0
	for i := range unposted {
		if ctx.Err() != nil {
			break
		}
		order := &unposted[i]
		if _, err := svc.PostOrder(ctx, order); err != nil {
			failed++
			b.logger.Error("order post failed",
				zap.String("order", order.ReferenceNumber()), zap.Error(err))
			continue
		}
		posted++
	}
	b.logger.Info("order posting summary",
		zap.Int("seen", len(unposted)), zap.Int("posted", posted), zap.Int("failed", failed))
	return nil
}

func (b *bridge) pullCustomer(ctx context.Context, erpNr string) error {
	sessions, err := b.sessions()
	if err != nil {
		return err
	}

	svc := partysync.NewPullService(
		persistence.NewGormCustomerRepository(b.db.DB),
		persistence.NewGormAddressRepository(b.db.DB),
		sessions,
		b.logger,
	)

	customer, err := svc.PullCustomer(ctx, erpNr)
	if err != nil {
		return err
	}
	b.logger.Info("customer pulled",
		zap.String("erpNr", customer.ErpNr), zap.String("name", customer.Name))
	return nil
}

func (b *bridge) pushCustomer(ctx context.Context, key string) error {
	platform, err := b.platform()
	if err != nil {
		return err
	}
	sessions, err := b.sessions()
	if err != nil {
		return err
	}

	customers := persistence.NewGormCustomerRepository(b.db.DB)
	customer, err := customers.FindByErpNr(ctx, key)
	if err != nil {
		customer, err = customers.FindByAPIID(ctx, key)
	}
	if err != nil {
		return fmt.Errorf("customer %s: %w", key, err)
	}

	svc := partysync.NewPushService(customers,
		persistence.NewGormAddressRepository(b.db.DB), platform, sessions, b.logger)

	result, err := svc.PushCustomer(ctx, customer)
	if err != nil {
		return err
	}
	b.logger.Info("customer pushed",
		zap.String("erpNr", result.ErpNr),
		zap.Bool("new", result.IsNewCustomer),
		zap.Bool("numberWrittenBack", result.PlatformUpdated))
	return nil
}

func (b *bridge) syncProducts(ctx context.Context, erpNrs []string, limit int) error {
	sessions, err := b.sessions()
	if err != nil {
		return err
	}

	svc := productsync.NewPullService(
		persistence.NewGormProductRepository(b.db.DB),
		persistence.NewGormSalesChannelRepository(b.db.DB),
		persistence.NewGormPriceRepository(b.db.DB),
		sessions,
		b.cfg.Sync,
		b.logger,
	)

	var summary productsync.PullSummary
	if len(erpNrs) > 0 {
		summary, err = svc.PullByNumbers(ctx, erpNrs)
	} else {
		summary, err = svc.PullAll(ctx, limit)
	}
	b.logger.Info("product sync summary",
		zap.Int("seen", summary.Seen),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("failed", summary.Failed))
	return err
}

func (b *bridge) pushProducts(ctx context.Context, erpNrs []string) error {
	platform, err := b.platform()
	if err != nil {
		return err
	}

	svc := productsync.NewPushService(
		persistence.NewGormProductRepository(b.db.DB), platform, b.logger)

	var summary productsync.PushSummary
	if len(erpNrs) > 0 {
		summary, err = svc.PushByNumbers(ctx, erpNrs)
	} else {
		summary, err = svc.PushActive(ctx)
	}
	b.logger.Info("product push summary",
		zap.Int("seen", summary.Seen),
		zap.Int("pushed", summary.Pushed),
		zap.Int("failed", summary.Failed))
	return err
}

func printUsage() {
	fmt.Println(`GC-Bridge - reconciles the webshop, the local store and the legacy ERP

Usage: bridge [flags] <command> [args]

Commands:
  sync-orders                 Ingest open orders from the configured sales channels
  post-order <api-id>         Post one order into the legacy ERP
  post-orders                 Post every order without a legacy document id
  pull-customer <erp-nr>      Mirror a legacy customer into the local store
  push-customer <key>         Write a local customer back to the legacy ERP
  sync-products [artnr ...]   Mirror legacy articles (all, or the given numbers)
  push-products [artnr ...]   Patch webshop products from the local catalog

Flags:
  -limit <n>                  Cap batch commands at n records
  -log-level <level>          Override the configured log level`)
}
