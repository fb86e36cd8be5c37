package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tenantsync/internal/document"
	"github.com/roach88/tenantsync/internal/importer"
	"github.com/roach88/tenantsync/internal/push"
	"github.com/roach88/tenantsync/internal/registry"
	"github.com/roach88/tenantsync/internal/remote"
	"github.com/roach88/tenantsync/internal/store"
)

// runtime bundles the collaborators a command needs for one tenant.
type runtime struct {
	cfg     *Config
	tenant  TenantConfig
	name    string
	product registry.Product
	store   *store.Store
	source  remote.Source
	limiter *remote.RateLimiter
	audit   remote.AuditSink
	logger  *slog.Logger
}

// openRuntime loads config, opens the cache database, and, when withSource
// is set, loads the tenant's remote source. Snapshot and history commands
// never touch the remote, so they skip the source.
func openRuntime(opts *RootOptions, tenantName string, withSource bool) (*runtime, error) {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	tenant, err := cfg.Tenant(tenantName)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "resolve tenant", err)
	}

	logger := newLogger(opts)

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open cache database", err)
	}

	rt := &runtime{
		cfg:     cfg,
		tenant:  tenant,
		name:    tenantName,
		product: registry.Product(tenant.Product),
		store:   st,
		limiter: cfg.Limiter(),
		audit:   &remote.LogAuditSink{Logger: logger},
		logger:  logger,
	}

	if withSource {
		source, err := openSource(tenant)
		if err != nil {
			rt.Close()
			return nil, WrapExitError(ExitCommandError, "load tenant source", err)
		}
		rt.source = source
	}
	return rt, nil
}

// Close releases the cache database.
func (r *runtime) Close() {
	if err := r.store.Close(); err != nil {
		r.logger.Error("closing cache database", "error", err)
	}
}

func (r *runtime) newImporter() *importer.Engine {
	return importer.New(r.store, r.source, r.limiter, r.audit, r.logger)
}

func (r *runtime) newPusher(opts ...push.Option) *push.Engine {
	return push.New(r.store, r.source, r.newImporter(), r.limiter, r.audit, r.logger, opts...)
}

func newLogger(opts *RootOptions) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openSource builds the tenant's remote source from its configured inventory
// document. A real product API client would be wired in here instead,
// implementing the same interface.
func openSource(tenant TenantConfig) (remote.Source, error) {
	if tenant.Inventory == "" {
		return nil, fmt.Errorf("tenant has no inventory source configured")
	}
	env, err := LoadEnvelope(tenant.Inventory)
	if err != nil {
		return nil, err
	}
	if env.Product != tenant.Product {
		return nil, fmt.Errorf("inventory product %q does not match tenant product %q", env.Product, tenant.Product)
	}

	nameFields := make(map[string]string)
	for _, def := range registry.Definitions(registry.Product(env.Product)) {
		if def.NameField != "name" {
			nameFields[def.Type] = def.NameField
		}
	}

	src := remote.NewMemorySource(nameFields)
	for rtype, entries := range env.Resources {
		items := make([]document.Object, 0, len(entries))
		for _, e := range entries {
			items = append(items, e.Payload)
		}
		src.Load(rtype, items)
	}
	return src, nil
}

// newFormatter builds the output formatter for a command invocation.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
