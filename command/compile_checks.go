package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[RunIngestMessage]   = (*RunIngestCommand)(nil)
	_ gocmd.Commander[SendExampleMessage] = (*SendExampleCommand)(nil)
)
