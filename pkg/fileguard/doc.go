// Package fileguard snapshots files and directory trees before an operation
// runs and restores them afterward, whatever the operation did.
//
// A Manager owns one staging area and one stack of staged copies per guarded
// path. Guards on the same path nest: the most recent capture is restored
// first, so the outermost guard leaves the path exactly as it found it.
//
// # Usage
//
// Run an operation inside a guard:
//
//	m := fileguard.NewManager(fileguard.Options{})
//	defer m.Close()
//	err := m.Guard("config.yaml", "data/").Run(func() error {
//	    return mutate()
//	})
//
// Scope a guard explicitly:
//
//	lease, err := m.Guard("config.yaml").Acquire()
//	if err != nil {
//	    return err
//	}
//	defer lease.Release()
//
// Guard every operation of a surface:
//
//	ops := m.Guard("state/").WrapAll(fileguard.Operations{
//	    "reset": reset,
//	    "load":  load,
//	})
//	err := ops["reset"]()
//
// # Concurrency Safety
//
//   - Guards run synchronously on the calling goroutine.
//
//   - Distinct paths may be guarded from different goroutines sharing one
//     Manager.
//
//   - Guarding the SAME path from several goroutines at once is unsupported:
//     exits no longer pair with their own enters.
//
//   - Nothing protects a guarded path from other processes.
package fileguard
