package types

// Keys recognised inside the values mapping of an entity and in the raw
// configuration payload.
const (
	KeyCohort           = "cohort"
	KeyValues           = "values"
	KeyIsActive         = "isActive"
	KeyDisableAnalytics = "disable_analytics"
)

// Flag keys persisted per experiment in a FlagStore.
const (
	KeyIsStarted   = "isStarted"
	KeyIsCompleted = "isCompleted"
)

// NoCohort is reported by Experiment.Cohort when the cohort value is not a
// string. Construction rejects that case, but debug overrides can replace the
// values mapping wholesale.
const NoCohort = "no-cohort-given"

// StoreNamespacePrefix is the stable prefix every FlagStore key starts with.
const StoreNamespacePrefix = "com.scrypster.switchboard"

// StoreNamespace returns the namespace under which flags for the entity named
// name are stored.
func StoreNamespace(name string) string {
	return StoreNamespacePrefix + "." + name
}

// StoreKey returns the fully qualified key for one flag of one entity, for
// backends that keep a single flat key space.
func StoreKey(name, key string) string {
	return StoreNamespace(name) + "." + key
}
