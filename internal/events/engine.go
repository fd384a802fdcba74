package events

import "DBHooks/internal/core/event"

// Engine event names.
const (
	BeforeExecute       = "before_execute"
	AfterExecute        = "after_execute"
	BeforeCursorExecute = "before_cursor_execute"
	AfterCursorExecute  = "after_cursor_execute"
	HandleError         = "handle_error"

	Begin             = "begin"
	Commit            = "commit"
	Rollback          = "rollback"
	Savepoint         = "savepoint"
	RollbackSavepoint = "rollback_savepoint"
	ReleaseSavepoint  = "release_savepoint"

	BeginTwoPhase    = "begin_twophase"
	PrepareTwoPhase  = "prepare_twophase"
	RollbackTwoPhase = "rollback_twophase"
	CommitTwoPhase   = "commit_twophase"
)

// EngineClass is the class of engines.
var EngineClass = event.NewClass("Engine", nil)

var cursorParams = []string{"conn", "cursor", "statement", "parameters", "context", "executemany"}

// Engine holds statement execution and transaction events.
//
// before_execute and before_cursor_execute accept event.WithRetval. Such
// listeners return (clauseelement, multiparams, params) and
// (statement, parameters) respectively, and the engine proceeds with the
// returned values.
var Engine = event.NewCatalog("engine",
	event.Binding{Primary: EngineClass},
	event.Descriptor{
		Name:   BeforeExecute,
		Params: []string{"conn", "clauseelement", "multiparams", "params"},
		Retval: []string{"clauseelement", "multiparams", "params"},
	},
	event.Descriptor{Name: AfterExecute, Params: []string{"conn", "clauseelement", "multiparams", "params", "result"}},
	event.Descriptor{
		Name:   BeforeCursorExecute,
		Params: cursorParams,
		Retval: []string{"statement", "parameters"},
	},
	event.Descriptor{Name: AfterCursorExecute, Params: cursorParams},
	event.Descriptor{Name: HandleError, Params: []string{"conn", "context", "error"}},

	event.Descriptor{Name: Begin, Params: []string{"conn"}},
	event.Descriptor{Name: Commit, Params: []string{"conn"}},
	event.Descriptor{Name: Rollback, Params: []string{"conn"}},
	event.Descriptor{Name: Savepoint, Params: []string{"conn", "name"}},
	event.Descriptor{Name: RollbackSavepoint, Params: []string{"conn", "name", "context"}},
	event.Descriptor{Name: ReleaseSavepoint, Params: []string{"conn", "name", "context"}},

	event.Descriptor{Name: BeginTwoPhase, Params: []string{"conn", "xid"}},
	event.Descriptor{Name: PrepareTwoPhase, Params: []string{"conn", "xid"}},
	event.Descriptor{Name: RollbackTwoPhase, Params: []string{"conn", "xid", "is_prepared"}},
	event.Descriptor{Name: CommitTwoPhase, Params: []string{"conn", "xid", "is_prepared"}},
)
