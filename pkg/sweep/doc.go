// Package sweep expands TOML parameter-sweep plans into job points and
// runs them through a bounded worker pool.
//
// A Plan names the layout, stack and materials files a sweep starts from
// and lists axes of values to vary. Expand produces the cross product of
// the axes; Pool.Run fans the points out to workers, tagging each job with
// a fresh id and reporting one Result per point. Jobs are independent: a
// failing point never cancels its siblings.
package sweep
