package events

// Topic constants for register events.
const (
	TopicSaleRecorded   = "sale.recorded"
	TopicHistoryCleared = "history.cleared"
	TopicCatalogUpdated = "catalog.updated"
)
