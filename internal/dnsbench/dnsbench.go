// Package dnsbench contains the context shared by the dnsbench commands.
package dnsbench

import (
	"context"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/ooni/dnsbench/internal/applier"
	"github.com/ooni/dnsbench/internal/config"
	"github.com/ooni/dnsbench/internal/database"
	"github.com/ooni/dnsbench/internal/dnsprobe"
	"github.com/ooni/dnsbench/internal/model"
	"github.com/pkg/errors"
	"github.com/upper/db/v4"
)

// Bench contains the dnsbench CLI context.
type Bench struct {
	config *config.Config
	db     db.Session
	dryRun bool
	logger model.Logger

	home       string
	configPath string

	newProber     func(logger model.Logger, network string) model.Prober
	newApplier    func(c *config.Config, logger model.Logger) model.ConfigurationApplier
	newLinkLister func(c *config.Config, logger model.Logger) linkLister
}

// linkLister lists the links whose DNS configuration we can revert.
type linkLister interface {
	Links(ctx context.Context) ([]string, error)
}

// NewBench creates a new Bench. An empty configPath means that
// we should use the config file inside home.
func NewBench(configPath, home string) *Bench {
	return &Bench{
		home:          home,
		configPath:    configPath,
		logger:        log.Log,
		newProber:     newProber,
		newApplier:    newApplier,
		newLinkLister: newLinkLister,
	}
}

func newProber(logger model.Logger, network string) model.Prober {
	return dnsprobe.NewProber(logger, network)
}

func newResolvectl(c *config.Config, logger model.Logger) *applier.Resolvectl {
	return &applier.Resolvectl{
		Logger:      logger,
		SudoCommand: c.SudoCommand,
		UseSudo:     c.UseSudo.UnwrapOr(true),
	}
}

func newApplier(c *config.Config, logger model.Logger) model.ConfigurationApplier {
	return newResolvectl(c, logger)
}

func newLinkLister(c *config.Config, logger model.Logger) linkLister {
	return newResolvectl(c, logger)
}

// SetDryRun sets whether we should only pretend to change the system.
func (b *Bench) SetDryRun(v bool) {
	b.dryRun = v
}

// IsDryRun returns whether we're running in dry run mode.
func (b *Bench) IsDryRun() bool {
	return b.dryRun
}

// Config returns the configuration.
func (b *Bench) Config() *config.Config {
	return b.config
}

// DB returns the history database.
func (b *Bench) DB() db.Session {
	return b.db
}

// Home returns the home directory.
func (b *Bench) Home() string {
	return b.home
}

// Applier returns the applier to use for changing the system.
func (b *Bench) Applier() model.ConfigurationApplier {
	if b.dryRun {
		return &applier.NoOp{Logger: b.logger}
	}
	return b.newApplier(b.config, b.logger)
}

// Init reads the configuration and opens the history database.
func (b *Bench) Init() error {
	var err error

	if err = os.MkdirAll(b.home, 0700); err != nil {
		return errors.Wrap(err, "creating home")
	}

	if b.configPath != "" {
		log.Debugf("Reading config file from %s", b.configPath)
		b.config, err = config.ReadConfig(b.configPath, b.home)
	} else {
		log.Debug("Reading default config file")
		b.config, err = config.InitDefaultConfig(config.DefaultPath(b.home), b.home)
	}
	if err != nil {
		return err
	}

	dbPath := b.config.DatabasePath
	if err = os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return errors.Wrap(err, "creating database dir")
	}
	log.Debugf("Connecting to database sqlite3://%s", dbPath)
	sess, err := database.Connect(dbPath)
	if err != nil {
		return err
	}
	b.db = sess
	return nil
}

// Close closes the history database.
func (b *Bench) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}
