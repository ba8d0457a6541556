package pgerrors

import "errors"

// Kind identifies the class of failure, per the error taxonomy every
// component reports against.
type Kind error

var (
	NotInitialized       Kind = errors.New("not initialized")
	AlreadyInitialized   Kind = errors.New("already initialized")
	InvalidParameter     Kind = errors.New("invalid parameter")
	NotLeader            Kind = errors.New("not leader")
	NodeNotFound         Kind = errors.New("node not found")
	ClusterFull          Kind = errors.New("cluster full")
	NetworkError         Kind = errors.New("network error")
	Timeout              Kind = errors.New("timeout")
	QueueFull            Kind = errors.New("queue full")
	NoCandidate          Kind = errors.New("no candidate")
	PromotionFailed      Kind = errors.New("promotion failed")
	BasebackupFailed     Kind = errors.New("basebackup failed")
	RecoveryConfigFailed Kind = errors.New("recovery config failed")
	QuorumLost           Kind = errors.New("quorum lost")
	Internal             Kind = errors.New("internal error")
)

// Is reports whether err's chain contains kind, the errors.Is convenience
// wrapper used throughout pgraft instead of string comparison.
func Is(err error, kind Kind) bool {
	return errors.Is(err, kind)
}
