package model

// All lists every table the engine migrates.
func All() []any {
	return []any{
		&ReliabilitySummary{},
		&ReliabilityField{},
		&ReliabilityLog{},
		&CacheEntry{},
		&SchemaMeta{},
	}
}
