package config

type SnapConfig struct {
	// SnapDirPath holds the snapshot metadata file. Empty keeps snapshots in memory.
	SnapDirPath string `mapstructure:"dir" json:"dir" yaml:"dir"`
}
