// Package report renders S-parameter matrices into shareable artifacts:
// interactive HTML charts via go-echarts and static plots via gonum/plot.
// Rendering is file-oriented; nothing here opens a browser or a window.
package report
