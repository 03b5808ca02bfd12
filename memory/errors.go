package memory

import "errors"

// ErrNoPersistentStore is returned by Manager fact mutations when no
// persistent store was configured.
var ErrNoPersistentStore = errors.New("no persistent store configured")

// ErrNoDecay is returned by GarbageCollector.CollectDecayed when no decay
// function was configured; garbage collection cannot score retention
// without one.
var ErrNoDecay = errors.New("no decay function configured")
