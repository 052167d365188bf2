package perturb

import "errors"

// ErrUnknownStrategy 未知的修改策略
var ErrUnknownStrategy = errors.New("未知的修改策略")
