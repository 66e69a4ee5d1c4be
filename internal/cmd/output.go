package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/bryangrimes/node-cubelets/flash"
	"github.com/bryangrimes/node-cubelets/upgrade"
	"github.com/bytedance/sonic"
	"github.com/schollz/progressbar/v3"
)

// writeJSON writes v as one line of JSON.
func writeJSON(w io.Writer, v interface{}) {
	payload, err := sonic.Marshal(v)
	if err != nil {
		logger.Error("encode json", "error", err)
		return
	}
	w.Write(append(payload, '\n'))
}

// progressBar renders flash progress on stderr.
type progressBar struct {
	bar *progressbar.ProgressBar
}

func newProgressBar(description string) *progressBar {
	return &progressBar{bar: progressbar.NewOptions(100,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
	)}
}

func (p *progressBar) update(pr flash.Progress) {
	p.bar.Describe(fmt.Sprintf("%-8s", pr.Phase))
	p.bar.Set(int(pr.Percentage))
}

func (p *progressBar) finish() {
	p.bar.Finish()
}

// renderer prints upgrade notifications, as JSON lines or as log lines with
// a progress bar per flash.
type renderer struct {
	out  io.Writer
	json bool
	bar  *progressBar
}

func newRenderer(out io.Writer, json bool) *renderer {
	return &renderer{out: out, json: json}
}

func (r *renderer) render(n upgrade.Notification) {
	if r.json {
		writeJSON(r.out, n)
		return
	}

	switch n.Kind {
	case upgrade.KindDetected:
		logger.Info("host firmware detected", "firmware", n.Firmware)
	case upgrade.KindHostFound:
		logger.Info("host block found", "device", n.Device.String())
	case upgrade.KindFlashStarted:
		logger.Info("flashing", "device", n.Device.String(), "role", string(n.Role))
		r.bar = newProgressBar(string(n.Role))
	case upgrade.KindFlashProgress:
		if r.bar != nil && n.Progress != nil {
			r.bar.update(*n.Progress)
		}
	case upgrade.KindFlashDone:
		if r.bar != nil {
			if n.Err == nil {
				r.bar.finish()
			} else {
				fmt.Fprintln(os.Stderr)
			}
			r.bar = nil
		}
	case upgrade.KindFacesScanned:
		logger.Debug("faces scanned", "faces", len(n.Faces))
	case upgrade.KindNoTarget:
		logger.Info("no neighbor with a known type, set info.table to resolve them", "pending", len(n.Pending))
	case upgrade.KindBlockCompleted:
		logger.Info("block upgraded", "device", n.Device.String())
	case upgrade.KindNeedDisconnect:
		fmt.Fprintln(os.Stderr, "Disconnect the host block now, then wait a moment.")
	case upgrade.KindNeedConnect:
		fmt.Fprintln(os.Stderr, "Reconnect the host block.")
	case upgrade.KindError:
		logger.Error("upgrade step failed, retrying", "error", n.Error)
	case upgrade.KindFinished:
		if n.Err != nil {
			logger.Error("upgrade failed", "session", n.Session, "error", n.Error)
		} else {
			logger.Info("upgrade finished", "session", n.Session)
		}
	}
}
