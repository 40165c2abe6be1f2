package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/edubot/internal/selfupdate"
)

const updateTimeout = 2 * time.Minute

var updateCmd = &cobra.Command{
	Use:   "update [version]",
	Short: "Update edubot to the latest (or a given) release",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		checker := selfupdate.NewChecker(selfupdate.WithTimeout(updateTimeout))

		ctx, cancel := context.WithTimeout(cmd.Context(), updateTimeout)
		defer cancel()

		if only, _ := cmd.Flags().GetBool("check"); only {
			return checkForUpdate(ctx, checker)
		}

		in := &selfupdate.UpdateInput{CurrentVersion: version}
		if len(args) == 1 {
			in.TargetVersion = args[0]
		}
		err := checker.Update(ctx, in, func(p selfupdate.UpdateProgress) {
			fmt.Printf("[%s] %s\n", p.Stage, p.Message)
		})

		switch {
		case err == nil:
			return nil
		case errors.Is(err, selfupdate.ErrDevBuild):
			fmt.Println("Cannot update a development build. Install a release build first.")
			return nil
		case errors.Is(err, selfupdate.ErrAlreadyLatest):
			fmt.Printf("Already running the latest version (%s).\n", version)
			return nil
		case errors.Is(err, selfupdate.ErrChecksum):
			return fmt.Errorf("%w: the download was not installed", err)
		case os.IsPermission(err):
			return fmt.Errorf("%w\n\nTry running: sudo edubot update", err)
		}
		return err
	},
}

func checkForUpdate(ctx context.Context, checker *selfupdate.Checker) error {
	res, err := checker.Check(ctx, &selfupdate.CheckInput{Version: version})
	if err != nil {
		return err
	}
	if !res.UpdateAvailable {
		fmt.Printf("edubot %s is up to date (latest release %s).\n", res.CurrentVersion, res.LatestVersion)
		return nil
	}
	fmt.Printf("edubot %s is available (running %s).\n", res.LatestVersion, res.CurrentVersion)
	if res.ReleaseURL != "" {
		fmt.Println("Release notes:", res.ReleaseURL)
	}
	fmt.Println("Run `edubot update` to install it.")
	return nil
}

func init() {
	updateCmd.Flags().Bool("check", false, "Only report whether a newer release exists")
}
