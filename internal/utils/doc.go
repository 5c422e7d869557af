// Package utils exposes the ambient helpers shared by the command-line interface.
//
// ConfigurationLoader layers the embedded defaults, an optional configuration
// file, and BRRBATCH_ environment overrides through Viper, decoding duration
// strings with mapstructure hooks. LoggerFactory builds the zap loggers, and
// FlushingWriter keeps console output visible while a batch is running.
package utils
