package clock

import "time"

// NowFunc returns current time; tests replace it to pin snapshot timestamps.
var NowFunc = time.Now

// Now returns NowFunc()
func Now() time.Time { return NowFunc() }
