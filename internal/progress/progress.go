// Package progress reports pipeline progress, either to a terminal UI or nowhere.
package progress

// Reporter receives stage updates from the pipeline. Items are stage names
// such as "issues"; implementations must be safe for concurrent use.
type Reporter interface {
	SetCurrentItem(item string)
	UpdateItemCount(item string, count int)
	MarkItemCompleted(item string, count int)
	MarkItemFailed(item string, message string)
	UpdateAPIStatus(success, warning, errors int)
	Log(format string, args ...any)
}

// Discard ignores all updates.
var Discard Reporter = discard{}

type discard struct{}

func (discard) SetCurrentItem(string) {}
func (discard) UpdateItemCount(string, int) {}
func (discard) MarkItemCompleted(string, int) {}
func (discard) MarkItemFailed(string, string) {}
func (discard) UpdateAPIStatus(int, int, int) {}
func (discard) Log(string, ...any) {}
