//go:build !android

package threadpool

const platformRequiresRuntime = false
