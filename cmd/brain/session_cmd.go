package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loriensleafs/brain/internal/session"
)

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the signed, optimistically-locked session record",
	}
	cmd.AddCommand(sessionCreateCmd())
	cmd.AddCommand(sessionPauseCmd())
	cmd.AddCommand(sessionResumeCmd())
	cmd.AddCommand(sessionCompleteCmd())
	return cmd
}

func sessionCreateCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "create <topic>",
		Short: "Create a new IN_PROGRESS session, auto-pausing any other",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sm, _, err := buildSessionMachine()
			if err != nil {
				return err
			}
			state, err := sm.Create(args[0], session.Mode(mode))
			if err != nil {
				return err
			}
			fmt.Printf("Created session %s (version %d, mode %s)\n", state.SessionID, state.Version, state.CurrentMode)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(session.ModeAnalysis), "Initial mode: analysis, planning, coding, disabled")
	return cmd
}

func sessionPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <id>",
		Short: "Transition a session from IN_PROGRESS to PAUSED",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sm, _, err := buildSessionMachine()
			if err != nil {
				return err
			}
			state, err := sm.Pause(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Session %s paused (version %d)\n", state.SessionID, state.Version)
			return nil
		},
	}
}

func sessionResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <id>",
		Short: "Transition a session from PAUSED to IN_PROGRESS, auto-pausing any conflicting session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sm, _, err := buildSessionMachine()
			if err != nil {
				return err
			}
			state, err := sm.Resume(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Session %s resumed (version %d)\n", state.SessionID, state.Version)
			return nil
		},
	}
}

func sessionCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Transition a session from IN_PROGRESS to the terminal COMPLETE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sm, _, err := buildSessionMachine()
			if err != nil {
				return err
			}
			state, err := sm.Complete(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Session %s completed (version %d)\n", state.SessionID, state.Version)
			return nil
		},
	}
}

// buildSessionMachine resolves config and constructs the session Store and
// StateMachine over the configured vault. The returned *session.Store is
// also handed back so callers that only need read access (e.g. a future
// "session show") don't have to reconstruct it.
func buildSessionMachine() (*session.StateMachine, *session.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	d, err := buildDepsNoteStoreOnly(cfg)
	if err != nil {
		return nil, nil, err
	}
	codec, err := session.NewCodec([]byte(cfg.Session.Secret))
	if err != nil {
		return nil, nil, err
	}
	store := session.NewStore(d, codec)
	return session.NewStateMachine(store), store, nil
}
