package arrangements

import "github.com/sirupsen/logrus"

// Log is the logger used by the solver. Callers may change its level, output
// or formatter.
var Log = logrus.New()
