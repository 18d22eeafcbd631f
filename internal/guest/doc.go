// Package guest runs ncube guest payloads on wazero.
//
// A Runtime is owned by one session and is not safe for concurrent use.
// It provides two host modules to the payload:
//
//	wbg.__wbindgen_throw(ptr, len)                 raise an exception
//	ncube.export_to_data_file(dimension, ptr, len)  save cube data
//	ncube.get_drag_drop_data(ptr, cap) -> len|-1    take dropped data
//	ncube.signal(version, code)                     raise a control signal
//
// Raised errors surface from Instantiate and Tick as *Thrown or *Signal.
package guest
