package events

// Topic constants for domain events emitted by the invoicing services.
const (
	TopicInvoiceCreated         = "invoice.created"
	TopicInvoiceUpdated         = "invoice.updated"
	TopicInvoiceDeleted         = "invoice.deleted"
	TopicInvoicePaymentRecorded = "invoice.payment_recorded"
	TopicClientCreated          = "client.created"
	TopicClientUpdated          = "client.updated"
	TopicClientDeleted          = "client.deleted"
	TopicCompanyUpdated         = "company.updated"
)

// DefaultTopics returns every topic the services emit.
func DefaultTopics() []string {
	return []string{
		TopicInvoiceCreated,
		TopicInvoiceUpdated,
		TopicInvoiceDeleted,
		TopicInvoicePaymentRecorded,
		TopicClientCreated,
		TopicClientUpdated,
		TopicClientDeleted,
		TopicCompanyUpdated,
	}
}

// IsInvoiceTopic reports whether the topic changes invoice aggregates.
func IsInvoiceTopic(topic string) bool {
	switch topic {
	case TopicInvoiceCreated, TopicInvoiceUpdated, TopicInvoiceDeleted, TopicInvoicePaymentRecorded:
		return true
	}
	return false
}
