package lifecycle

import (
	"errors"

	"github.com/imamik/stratus/api/v1alpha1"
)

// ErrIllegalTransition is returned when a status change is not allowed.
var ErrIllegalTransition = errors.New("illegal status transition")

var transitions = map[v1alpha1.ClusterStatus][]v1alpha1.ClusterStatus{
	v1alpha1.StatusNew:           {v1alpha1.StatusValidating},
	v1alpha1.StatusValidating:    {v1alpha1.StatusInfraUpdating, v1alpha1.StatusScaling, v1alpha1.StatusActive, v1alpha1.StatusError},
	v1alpha1.StatusInfraUpdating: {v1alpha1.StatusConfiguring, v1alpha1.StatusError},
	v1alpha1.StatusConfiguring:   {v1alpha1.StatusStarting, v1alpha1.StatusActive, v1alpha1.StatusError},
	v1alpha1.StatusStarting:      {v1alpha1.StatusActive, v1alpha1.StatusError},
	v1alpha1.StatusScaling:       {v1alpha1.StatusConfiguring, v1alpha1.StatusActive, v1alpha1.StatusError},
	v1alpha1.StatusActive:        {v1alpha1.StatusValidating},
}

// CanTransition reports whether a cluster in status from may move to status to.
// Deleting is reachable from every status, including Deleting itself so that
// a failed termination can be retried.
func CanTransition(from, to v1alpha1.ClusterStatus) bool {
	if to == v1alpha1.StatusDeleting {
		return true
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsBusy reports whether a status belongs to an in-progress operation.
func IsBusy(s v1alpha1.ClusterStatus) bool {
	switch s {
	case v1alpha1.StatusActive, v1alpha1.StatusError:
		return false
	}
	return true
}

// IsKnown reports whether s is one of the persisted statuses.
func IsKnown(s v1alpha1.ClusterStatus) bool {
	for _, known := range v1alpha1.Statuses {
		if s == known {
			return true
		}
	}
	return false
}
