// Package factory provides a small generic registry used to instantiate modules
// from configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[forecasting.Model]()
//	reg.Register("arima", func(conf map[string]any) (forecasting.Model, error) {
//	    p := forecasting.DefaultARIMAParams()
//	    if err := factory.DecodeStrict(conf, &p); err != nil {
//	        return nil, err
//	    }
//	    return forecasting.NewARIMA(p)
//	})
//	m, err := reg.Create(factory.ModuleConfig{Type: "arima", Conf: map[string]any{"p": 2}})
package factory
