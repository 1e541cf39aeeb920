// Package discovery finds Home Assistant servers on the local network.
//
// Home Assistant advertises itself over multicast DNS as
// "_home-assistant._tcp" with TXT records carrying its location name,
// version, installation uuid and base URLs. The scanner browses for that
// service until its timeout and returns one Instance per installation:
//
//	instances, err := discovery.Discover(ctx, 5*time.Second)
//	if err != nil {
//	    return err
//	}
//	for _, i := range instances {
//	    fmt.Println(i.Name, i.BaseURL(), i.Version)
//	}
//
// Discovery needs multicast on the interface and UDP port 5353 open.
package discovery
