/*
Package cli provides command-line helpers for the custodian command.

Exit codes:

	0  success
	1  partial failure: some documents or actions failed
	2  fatal configuration error: invalid config or contradictory policies

ExitCode maps any error returned by a command onto these codes:

	if err := rootCmd.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}

Output Formatting:

Commands print either aligned text tables or indented JSON:

	out := cli.NewPrinter(os.Stdout, cli.FormatJSON)
	if err := out.Print(worklist, rows); err != nil {
		return err
	}

Signal Handling:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()
*/
package cli
