package pebblestore

// Key prefixes for the queue store keyspace.
const (
	prefixQueue   = "q/"
	prefixMessage = "m/"
	prefixClaim   = "c/"
)

// queueKey returns the queue record key.
// Format: q/{project}/{queue}
func queueKey(project, queue string) []byte {
	return []byte(prefixQueue + project + "/" + queue)
}

// queueScanPrefix returns the prefix for listing a project's queues.
// Format: q/{project}/
func queueScanPrefix(project string) []byte {
	return []byte(prefixQueue + project + "/")
}

// messageKey returns the message record key.
// Format: m/{project}/{queue}/{message_id}
func messageKey(project, queue, messageID string) []byte {
	return []byte(prefixMessage + project + "/" + queue + "/" + messageID)
}

// messageScanPrefix returns the prefix for iterating a queue's messages in
// id (submission) order.
// Format: m/{project}/{queue}/
func messageScanPrefix(project, queue string) []byte {
	return []byte(prefixMessage + project + "/" + queue + "/")
}

// claimKey returns the claim record key.
// Format: c/{project}/{queue}/{claim_id}
func claimKey(project, queue, claimID string) []byte {
	return []byte(prefixClaim + project + "/" + queue + "/" + claimID)
}

// claimScanPrefix returns the prefix for iterating a queue's claims.
// Format: c/{project}/{queue}/
func claimScanPrefix(project, queue string) []byte {
	return []byte(prefixClaim + project + "/" + queue + "/")
}

// keyUpperBound returns the exclusive upper bound for scanning with a prefix.
func keyUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix)+1)
	copy(end, prefix)
	end[len(prefix)] = 0xFF
	return end
}
