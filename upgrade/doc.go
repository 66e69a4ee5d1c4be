// Package upgrade walks a mesh of blocks and moves every reachable block,
// and finally the host, to the imago application firmware.
//
// An Orchestrator detects which firmware the host runs, installs the
// bootstrap firmware on a classic host, and then loops: it enters discovery
// mode, listens for the faces that report a neighbor, and upgrades one
// pending neighbor per iteration. Finish ends the loop at the next
// iteration boundary, after which Start installs the application on the
// host and returns.
//
// Basic usage:
//
//	o := upgrade.New(c,
//	    upgrade.WithCatalog(cat),
//	    upgrade.WithInfoResolver(info.NewCached(resolver, 0)),
//	)
//	events, unsubscribe := o.Subscribe()
//	defer unsubscribe()
//	go func() {
//	    for n := range events {
//	        fmt.Println(n.Kind, n.Device.ID)
//	    }
//	}()
//	err := o.Start(ctx)
//
// Start blocks until the upgrade completes or fails; Finish is called from
// another goroutine, typically when the user has attached every block.
package upgrade
