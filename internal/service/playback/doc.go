// Package playback implements the foreground music playback service.
//
// The service is a state machine driven by PLAY, PAUSE and STOP commands:
//
//	Stopped -> Starting -> Playing <-> Paused -> Stopped
//
// Every transition refreshes a single persistent status surface (the
// notification) through a Notifier. STOP removes the surface and releases the
// foreground resources acquired by the first PLAY.
package playback
