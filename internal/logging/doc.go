// Package logging provides leveled log output for the whole application.
//
// The level is read once from the environment: DEBUG=true forces debug
// output, otherwise LOG_LEVEL selects one of debug, info, warn, error.
// The default is info.
package logging
