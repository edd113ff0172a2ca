// Package pool
// Author: momentics <momentics@gmail.com>
//
// Object recycling for the connection layer. FreePool keeps a bounded reserve
// of idle entities so high connection turnover does not churn the heap; the
// number of live entities is bounded only by MaxLive, when set.
package pool
