// Package procedure models a deployment hook as an ordered list of named,
// fallible steps that run fail-fast.
//
// A Procedure owns no I/O of its own. Steps are closures bound by the
// imperative shell (internal/engine); Run only sequences them, prints the
// banners to the console writer, and wraps the first failure in a StepError
// naming the step.
//
//	p := procedure.Procedure{
//	    Name:        "after-install",
//	    StartBanner: "Post Install: /opt/app",
//	    DoneBanner:  "Post Install Completed",
//	    Steps:       steps,
//	}
//	res, err := procedure.Run(ctx, p, os.Stdout, logger)
package procedure
