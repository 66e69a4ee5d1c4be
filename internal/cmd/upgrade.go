package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/bryangrimes/node-cubelets/catalog"
	"github.com/bryangrimes/node-cubelets/info"
	"github.com/bryangrimes/node-cubelets/ledger"
	"github.com/bryangrimes/node-cubelets/protocol"
	"github.com/bryangrimes/node-cubelets/upgrade"
	"github.com/spf13/cobra"
)

var upgradeBlocks int

// upgradeCmd represents the upgrade command.
var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Upgrade the host and every attached block",
	Long: `Upgrade the host block and every block attached to it from CLASSIC to
IMAGO firmware.

Images come from the firmware catalog (--catalog). Blocks discovered by ID
only are resolved through the block table (info.table in the config file).
The first interrupt finishes the upgrade after the block in progress, the
second aborts it.

Example:
  meshflash upgrade --port /dev/rfcomm0 --catalog firmware/catalog.yaml --blocks 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Catalog == "" {
			return errors.New("a firmware catalog is required (--catalog or MESHFLASH_CATALOG)")
		}
		cat, err := catalog.Load(cfg.Catalog)
		if err != nil {
			return err
		}

		opts := []upgrade.Option{
			upgrade.WithCatalog(cat),
			upgrade.WithFlasherOptions(cfg.FlashOptions()...),
			upgrade.WithTimings(cfg.Timings()),
			upgrade.WithLogger(logger),
		}
		if cfg.Info.Table != "" {
			table, err := info.LoadStatic(cfg.Info.Table)
			if err != nil {
				return err
			}
			opts = append(opts, upgrade.WithInfoResolver(info.NewCached(table, cfg.Info.CacheTTL)))
		}
		if cfg.Ledger.Path != "" {
			store, err := ledger.Open(cfg.Ledger.Path)
			if err != nil {
				return err
			}
			defer store.Close()
			opts = append(opts, upgrade.WithRecorder(store))
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		c, err := openClient(ctx, protocol.ModeClassic)
		if err != nil {
			return err
		}
		defer c.Close()

		o := upgrade.New(c, opts...)
		notes, unsubscribe := o.Subscribe()
		rendered := make(chan struct{})
		r := newRenderer(cmd.OutOrStdout(), jsonOutput)
		go func() {
			defer close(rendered)
			for n := range notes {
				r.render(n)
				if n.Kind == upgrade.KindBlockCompleted && upgradeBlocks > 0 && len(o.Completed()) >= upgradeBlocks {
					o.Finish()
				}
			}
		}()

		sigs := make(chan os.Signal, 2)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigs)
		go func() {
			finishing := false
			for {
				select {
				case <-sigs:
				case <-ctx.Done():
					return
				}
				if !finishing && o.Finish() == nil {
					finishing = true
					logger.Info("finishing after the current block; interrupt again to abort")
					continue
				}
				cancel()
				return
			}
		}()

		err = o.Start(ctx)
		unsubscribe()
		<-rendered
		return err
	},
}

func init() {
	upgradeCmd.Flags().IntVar(&upgradeBlocks, "blocks", 0, "finish after this many blocks are upgraded (0 waits for an interrupt)")
	rootCmd.AddCommand(upgradeCmd)
}
