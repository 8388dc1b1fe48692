package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"pictor/internal/config"
	"pictor/internal/fileservice"
	"pictor/internal/logging"
	"pictor/internal/registry"
)

// handleEvent is the change-detection callback. Each event gets its own
// correlation identifier so the register/broadcast pair can be traced in
// the logs. Failures are absorbed here; the watch loop must keep running.
func (d *Daemon) handleEvent(event fileservice.Event) {
	ctx := logging.WithCorrelationID(context.Background(), uuid.NewString())
	logger := logging.WithContext(ctx, d.logger)

	switch event.Type {
	case fileservice.EventCreated:
		reg, err := d.store.Register(ctx, event.Path, registry.SourceFileService, nil)
		if err != nil {
			logger.Error("registration failed",
				logging.String(logging.FieldImagePath, event.Path), logging.Error(err))
			return
		}
		if reg == nil {
			logger.Debug("path already registered",
				logging.String(logging.FieldImagePath, event.Path))
			return
		}
		logger.Info("image registered",
			logging.String(logging.FieldImagePath, reg.ImagePath),
			logging.String(logging.FieldRegistrationID, reg.ID),
		)
		d.state.ImageAdded(reg)
	case fileservice.EventDeleted:
		reg, err := d.store.DeleteByImagePath(ctx, event.Path)
		if err != nil {
			logger.Error("deregistration failed",
				logging.String(logging.FieldImagePath, event.Path), logging.Error(err))
			return
		}
		if reg == nil {
			return
		}
		logger.Info("image removed",
			logging.String(logging.FieldImagePath, event.Path),
			logging.String(logging.FieldRegistrationID, reg.ID),
		)
		d.state.ImageRemoved(event.Path)
	}
}

// initialScan registers files already present in the watch directory so a
// daemon restart never loses artifacts produced while it was down.
func (d *Daemon) initialScan(ctx context.Context) {
	listing, err := d.files.List(ctx, d.cfg.Paths.WatchDir)
	if err != nil {
		d.logger.Warn("startup scan failed", logging.Error(err))
		return
	}

	registered := 0
	for _, info := range listing {
		reg, err := d.store.Register(ctx, info.Path, registry.SourceScan, nil)
		if err != nil {
			d.logger.Warn("startup scan registration failed",
				logging.String(logging.FieldImagePath, info.Path), logging.Error(err))
			continue
		}
		if reg != nil {
			registered++
		}
	}
	d.logger.Info("startup scan complete",
		logging.Int("seen", len(listing)),
		logging.Int("registered", registered),
	)
}

// cleanupOrphans garbage-collects registrations whose files vanished while
// the daemon was down. It only runs when the artifact root is locally
// visible: in remote mode the files live on the other end of the listing
// endpoint and a local existence check would orphan every live row.
func (d *Daemon) cleanupOrphans(ctx context.Context) {
	if d.cfg.FileService.Mode != config.ModeLocal {
		d.logger.Info("orphan cleanup skipped; artifact root is remote")
		return
	}
	report, err := d.store.CleanupOrphans(ctx, d.cfg.Paths.WatchDir, false)
	if err != nil {
		d.logger.Warn("orphan cleanup failed", logging.Error(err))
		return
	}
	if report.Deleted > 0 {
		d.logger.Info("removed orphaned registrations",
			logging.Int(logging.FieldCount, report.Deleted))
	}
}

// seedState fills the broadcaster so the first observer snapshot is
// complete: latest registration page, template list, stored settings.
func (d *Daemon) seedState(ctx context.Context) {
	page, total, err := d.store.GetAll(ctx, d.cfg.State.PageSize, 0)
	if err != nil {
		d.logger.Warn("failed to load registration page", logging.Error(err))
	} else {
		d.state.SetImages(page, total)
	}

	templates, err := listTemplates(d.cfg.Paths.TemplatesDir)
	if err != nil {
		d.logger.Warn("failed to list templates", logging.Error(err))
	} else {
		d.state.SetTemplates(templates)
	}

	settings, err := d.store.Settings(ctx)
	if err != nil {
		d.logger.Warn("failed to load settings", logging.Error(err))
		return
	}
	d.state.SetSettings(settings)
	if current, ok := settings["current_template"]; ok {
		d.state.SetCurrentTemplate(current)
	}
}

func listTemplates(dir string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	templates := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		templates = append(templates, entry.Name())
	}
	sort.Strings(templates)
	return templates, nil
}
