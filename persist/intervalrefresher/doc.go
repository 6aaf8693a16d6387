// Package intervalrefresher provides a background refresher of persisted states.
package intervalrefresher
