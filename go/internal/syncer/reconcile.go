package syncer

import "github.com/fmartingr/CookieClickerCloudSave/go/internal/models"

// Decision is the outcome of comparing the last synced record with the remote one.
type Decision int

const (
	// DecisionLoadRemote loads a strictly newer remote record into the game.
	DecisionLoadRemote Decision = iota
	// DecisionPushLocal re-sends the local record unchanged. Ties land here.
	DecisionPushLocal
	// DecisionAdoptRemote backs up the live save, then loads the remote record.
	DecisionAdoptRemote
	// DecisionRepublishLocal pushes the local payload with a fresh timestamp.
	DecisionRepublishLocal
	// DecisionSeed backs up the live save and pushes it as the first record.
	DecisionSeed
)

func (d Decision) String() string {
	switch d {
	case DecisionLoadRemote:
		return "load_remote"
	case DecisionPushLocal:
		return "push_local"
	case DecisionAdoptRemote:
		return "adopt_remote"
	case DecisionRepublishLocal:
		return "republish_local"
	case DecisionSeed:
		return "seed"
	default:
		return "unknown"
	}
}

// Decide picks the reconciliation branch. Nil means absent.
func Decide(local, remote *models.SaveRecord) Decision {
	switch {
	case local != nil && remote != nil:
		if remote.NewerThan(*local) {
			return DecisionLoadRemote
		}
		return DecisionPushLocal
	case remote != nil:
		return DecisionAdoptRemote
	case local != nil:
		return DecisionRepublishLocal
	default:
		return DecisionSeed
	}
}
