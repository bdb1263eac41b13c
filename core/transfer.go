package core

import "time"

// TransferStatus is the verifier-reported status of an interactive transfer.
// The set of values is open: anchors introduce new intermediate statuses over
// time, so unknown values are carried through as-is and only the two terminal
// markers are interpreted locally.
type TransferStatus string

const (
	// StatusIncomplete means the interactive flow has not been completed yet
	StatusIncomplete TransferStatus = "incomplete"

	// StatusPendingUserTransferStart means the anchor is waiting on the user to send funds
	StatusPendingUserTransferStart TransferStatus = "pending_user_transfer_start"

	// StatusPendingAnchor means the anchor is processing the transfer
	StatusPendingAnchor TransferStatus = "pending_anchor"

	// StatusCompleted is the successful terminal status
	StatusCompleted TransferStatus = "completed"

	// StatusError is the failed terminal status
	StatusError TransferStatus = "error"
)

// Terminal reports whether the status ends the polling loop. Every status
// other than completed and error requires continued polling.
func (s TransferStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// TransferSession tracks one interactive deposit or withdraw request. All
// fields other than ID and InteractiveURL are refreshed from the verifier on
// every status poll; nothing is derived locally.
type TransferSession struct {
	ID             string         // verifier-assigned, immutable once issued
	Mode           string         // "deposit" or "withdraw"
	InteractiveURL string         // one-time URL for the out-of-band user interaction
	Status         TransferStatus // last status observed from the verifier
	Message        string         // optional human-readable detail from the verifier
	AmountIn       string
	AssetCode      string
	StartedAt      time.Time
}
