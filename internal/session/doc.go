// Package session runs the dashboard control loop.
//
// One goroutine does everything, in order, on every iteration:
//
//  1. refresh entity state when the refresh interval has passed
//  2. redraw whatever is dirty
//  3. wait up to one refresh interval for a key
//
// Provider failures are logged and skipped. When the terminal goes away the
// transport, provider, entity store and dashboard are all thrown away and
// rebuilt once the terminal can be opened again:
//
//	s := session.New(cfg, session.Options{ConfigPath: path, Watch: true})
//	if err := s.Run(ctx); err != nil {
//	    return err
//	}
//
// Run returns nil when the user types "exit", presses Ctrl-C on a local TTY,
// or ctx is cancelled.
package session
