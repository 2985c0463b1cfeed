package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/railzwaylabs/biochar/internal/methodology"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// LoadMethodology reads a methodology edition from path. Keys absent from the file keep their
// built-in default.
func LoadMethodology(path string) (methodology.Params, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return methodology.Params{}, fmt.Errorf("read methodology file: %w", err)
	}
	return decodeMethodology(v)
}

func decodeMethodology(v *viper.Viper) (methodology.Params, error) {
	params := methodology.Default()
	if err := v.Unmarshal(&params); err != nil {
		return methodology.Params{}, fmt.Errorf("decode methodology: %w", err)
	}
	if err := params.Validate(); err != nil {
		return methodology.Params{}, err
	}
	return params, nil
}

// MethodologyWatcher keeps a Holder in sync with the methodology file.
type MethodologyWatcher struct {
	holder *methodology.Holder
	log    *zap.Logger
	path   string
}

// Watch starts watching the file. Invalid edits are logged and ignored so the last good edition stays
// active.
func (w *MethodologyWatcher) Watch() error {
	v := viper.New()
	v.SetConfigFile(w.path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read methodology file: %w", err)
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		params, err := decodeMethodology(v)
		if err != nil {
			w.log.Warn("ignoring invalid methodology edit", zap.String("file", e.Name), zap.Error(err))
			return
		}
		prev, err := w.holder.Swap(params)
		if err != nil {
			w.log.Warn("ignoring invalid methodology edit", zap.String("file", e.Name), zap.Error(err))
			return
		}
		w.log.Info("methodology reloaded",
			zap.String("previous_version", prev),
			zap.String("version", params.Version),
		)
	})
	v.WatchConfig()
	return nil
}

type MethodologyParams struct {
	fx.In

	Config    Config
	Log       *zap.Logger
	Lifecycle fx.Lifecycle `optional:"true"`
}

// NewMethodologyHolder builds the active methodology from the configured file, or the built-in
// default, and starts watching the file when the application starts.
func NewMethodologyHolder(p MethodologyParams) (*methodology.Holder, error) {
	path := strings.TrimSpace(p.Config.MethodologyFile)
	if path == "" {
		return methodology.NewHolder(methodology.Default())
	}

	params, err := LoadMethodology(path)
	if err != nil {
		return nil, err
	}
	holder, err := methodology.NewHolder(params)
	if err != nil {
		return nil, err
	}

	watcher := &MethodologyWatcher{holder: holder, log: p.Log.Named("methodology"), path: path}
	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.Hook{
			OnStart: func(context.Context) error {
				return watcher.Watch()
			},
		})
	}
	p.Log.Info("methodology loaded", zap.String("file", path), zap.String("version", params.Version))
	return holder, nil
}

// NewMethodologyWatcher is exposed for callers managing their own lifecycle.
func NewMethodologyWatcher(holder *methodology.Holder, log *zap.Logger, path string) *MethodologyWatcher {
	return &MethodologyWatcher{holder: holder, log: log, path: path}
}
