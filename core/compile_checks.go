package core

import (
	glog "github.com/goliatone/go-logger/glog"
	sqlstore "github.com/goliatone/go-shelf/store/sql"
)

var (
	_ Registrant      = (*Plugin)(nil)
	_ Extension       = ExtensionFunc{}
	_ RawConfigLoader = FileConfigLoader{}
	_ RawConfigLoader = StaticConfigLoader{}
	_ entityStore     = (*sqlstore.EntityStore)(nil)
	_ entityStore     = (*sqlstore.CachedEntityStore)(nil)

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
