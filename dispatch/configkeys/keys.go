package configkeys

const (
	delimiter = "."

	ConfigPrefix = "config"

	ConfigDispatchPrefix = ConfigPrefix + delimiter + "dispatch"

	ConfigDispatchCachePrefix   = ConfigDispatchPrefix + delimiter + "cache"
	ConfigDispatchCacheShards   = ConfigDispatchCachePrefix + delimiter + "shards"
	ConfigDispatchCacheDisabled = ConfigDispatchCachePrefix + delimiter + "disabled"

	ConfigDispatchHistoryPrefix = ConfigDispatchPrefix + delimiter + "history"
	ConfigDispatchHistorySize   = ConfigDispatchHistoryPrefix + delimiter + "size"
)
