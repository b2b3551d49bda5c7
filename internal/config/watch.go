package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ChangeFunc receives the reloaded configuration after the config file
// changes. err is set when the new file does not load or validate; cfg is nil
// in that case and the previous configuration stays in effect.
type ChangeFunc func(cfg *Config, err error)

// Watch re-reads the config file whenever it is written and calls onChange.
// It only has an effect when viper has a config file in use.
func Watch(onChange ChangeFunc) {
	viper.OnConfigChange(changeHandler(onChange))
	viper.WatchConfig()
}

// changeHandler filters file events down to writes and creates, which is what
// editors produce when saving (some replace the file instead of writing it).
func changeHandler(onChange ChangeFunc) func(fsnotify.Event) {
	return func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := Load()
		onChange(cfg, err)
	}
}
