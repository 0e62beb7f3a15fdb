// Package constraint turns declared assembly constraints into residual
// terms: functions of component positions that are zero when the
// constraint holds. Terms are evaluated against a Frame, a snapshot of
// candidate positions, and may supply analytic partial derivatives.
package constraint
