package config

import "time"

var AppVersion = "DEVELOPMENT"

const (
	AppName           = "tensile"
	CalibrationDbFile = "calibration.db"
	LogFile           = "tensile.log"
	PidFile           = "tensile.pid"
	CfgFile           = "config.toml"
	UserDir           = "user"
	APIRequestTimeout = 30 * time.Second
)
