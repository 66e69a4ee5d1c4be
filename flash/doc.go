// Package flash pushes a firmware image into one block over an open link.
//
// Two handshakes exist. The host block (hop count 0) receives the whole
// image in fixed-size chunks and writes it itself, streaming framed
// progress events while it does so. Downstream target blocks receive the
// image page by page through the host and confirm each page with a status
// byte.
//
// Basic usage:
//
//	f := flash.New(link,
//	    flash.WithProgressCallback(func(p flash.Progress) {
//	        fmt.Printf("[%s] %.1f%%\n", p.Phase, p.Percentage)
//	    }),
//	)
//	if err := f.Flash(ctx, prog, dev); err != nil {
//	    var fe *flash.FlashError
//	    if errors.As(err, &fe) {
//	        fmt.Println(fe.Hint)
//	    }
//	}
//
// A session holds the link for its whole duration, so queued commands are
// not transmitted while it runs. Sessions are not cancelled by the upgrade
// loop; cancelling ctx is the only way to abort one early.
package flash
