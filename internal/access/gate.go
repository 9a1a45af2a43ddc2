// AngelaMos | 2026
// gate.go

package access

import (
	"fmt"

	"github.com/carterperez-dev/vidshelf/internal/core"
	"github.com/carterperez-dev/vidshelf/internal/model"
)

type Operation string

const (
	CategoryCreate Operation = "category.create"
	CategoryRename Operation = "category.rename"
	CategoryDelete Operation = "category.delete"

	VideoUpload  Operation = "video.upload"
	VideoEdit    Operation = "video.edit"
	VideoTrash   Operation = "video.trash"
	VideoRestore Operation = "video.restore"
	VideoPurge   Operation = "video.purge"
	TrashList    Operation = "video.trash_list"

	UserList      Operation = "user.list"
	UserRole      Operation = "user.role"
	UserDelete    Operation = "user.delete"
	ProfileUpdate Operation = "user.profile"

	SettingsRead   Operation = "settings.read"
	SettingsUpdate Operation = "settings.update"
	StatsRead      Operation = "stats.read"
)

// Target identifies what an operation acts on. AccountID is set for
// account operations, Uploader for video operations.
type Target struct {
	AccountID string
	Uploader  string
}

var adminOnly = map[Operation]bool{
	CategoryCreate: true,
	CategoryRename: true,
	CategoryDelete: true,
	VideoTrash:     true,
	VideoRestore:   true,
	VideoPurge:     true,
	TrashList:      true,
	UserList:       true,
	UserRole:       true,
	UserDelete:     true,
	SettingsRead:   true,
	SettingsUpdate: true,
	StatsRead:      true,
}

// Allowed decides whether actor may perform op on target. It holds no
// state and never touches the catalog.
func Allowed(op Operation, actor *model.Account, target Target) bool {
	if actor == nil {
		return false
	}

	switch op {
	case UserRole, UserDelete:
		return actor.IsAdmin() && target.AccountID != actor.ID
	case VideoUpload:
		return true
	case VideoEdit:
		return actor.IsAdmin() || target.Uploader == actor.Username
	case ProfileUpdate:
		return actor.IsAdmin() || target.AccountID == actor.ID
	}

	if adminOnly[op] {
		return actor.IsAdmin()
	}

	return false
}

// Check is Allowed in error form: core.ErrUnauthorized when there is no
// actor, core.ErrForbidden when the rules deny.
func Check(op Operation, actor *model.Account, target Target) error {
	if actor == nil {
		return fmt.Errorf("%s: %w", op, core.ErrUnauthorized)
	}

	if Allowed(op, actor, target) {
		return nil
	}

	if (op == UserRole || op == UserDelete) && target.AccountID == actor.ID {
		return fmt.Errorf("%s: cannot target your own account: %w",
			op, core.ErrForbidden)
	}

	return fmt.Errorf("%s: %w", op, core.ErrForbidden)
}
