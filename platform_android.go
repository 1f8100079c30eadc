//go:build android

package threadpool

// Workers on android run inside a JVM-hosting process and must attach.
const platformRequiresRuntime = true
