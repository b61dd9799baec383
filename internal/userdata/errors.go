package userdata

import "errors"

// Failure classes of a handler invocation. Every one of them is logged and
// recorded in Result.Errors; none of them stops the boot.
var (
	ErrClassify     = errors.New("payload format cannot be detected")
	ErrFetch        = errors.New("failed to fetch payload")
	ErrLoad         = errors.New("failed to load configuration file")
	ErrSave         = errors.New("failed to save configuration file")
	ErrLineParse    = errors.New("failed to parse command")
	ErrLineApply    = errors.New("failed to apply command")
	ErrTemplateScan = errors.New("failed to find tag nodes")
)
